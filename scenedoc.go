package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/config"
	"github.com/mogaika/scenedoc/document"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
	"github.com/mogaika/scenedoc/web"
)

func main() {
	var in, out, configPath, addr string
	var serve, dump, namedBinds, roundtrip, encodings bool
	var fps float64
	flag.StringVar(&in, "in", "", "Input .gltf, .glb or binary .fbx file")
	flag.StringVar(&out, "out", "", "Output file, format from extension (.glb, .gltf, .fbx, .zip)")
	flag.StringVar(&configPath, "config", "", "Path to yaml settings")
	flag.BoolVar(&serve, "serve", false, "Start http conversion service")
	flag.StringVar(&addr, "i", "", "Address of server, overrides server.addr")
	flag.BoolVar(&dump, "dump", false, "Print document summary and skeletons")
	flag.BoolVar(&namedBinds, "named-binds", false, "Bind skins to bones by name")
	flag.BoolVar(&roundtrip, "roundtrip", true, "Convert through the host scene before writing")
	flag.Float64Var(&fps, "fps", 0, "Animation bake rate, overrides import.bake_fps")
	flag.BoolVar(&encodings, "encodings", false, "List codepages usable as names.encoding")
	flag.Parse()

	if encodings {
		for _, e := range config.ListEncodings() {
			fmt.Println(e)
		}
		return
	}

	settings, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	if err := settings.Apply(); err != nil {
		panic(err)
	}
	if fps > 0 {
		settings.Import.BakeFPS = float32(fps)
		settings.Export.BakeFPS = float32(fps)
	}
	if namedBinds {
		settings.Import.NamedSkinBinds = true
	}

	logger.Init(settings.Log)
	defer logger.Sync()
	log := logger.L()

	d := document.New()
	d.BakeFPS = settings.Export.BakeFPS

	if serve {
		if addr == "" {
			addr = settings.Server.Addr
		}
		if err := web.StartServer(addr, web.NewServer(d, settings)); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
		return
	}

	if in == "" {
		flag.PrintDefaults()
		return
	}

	flags := document.FlagsFromConfig(settings.Import)
	st, err := d.AppendFromFile(in, flags)
	if err != nil {
		log.Fatal("parse failed", zap.String("file", in), zap.Error(err))
	}

	if dump {
		os.Stdout.WriteString(utils.SDump(document.Summarize(st), st.Skeletons))
	}
	if out == "" {
		return
	}

	format, err := document.ParseFormat(filepath.Ext(out))
	if err != nil {
		log.Fatal("bad output", zap.String("file", out), zap.Error(err))
	}
	if roundtrip {
		if st, err = d.Roundtrip(st, flags, document.OptionsFromConfig(settings.Import)); err != nil {
			log.Fatal("convert failed", zap.Error(err))
		}
	}

	var buf bytes.Buffer
	if err := d.Write(&buf, st, format); err != nil {
		log.Fatal("write failed", zap.String("file", out), zap.Error(err))
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		log.Fatal("write failed", zap.String("file", out), zap.Error(err))
	}
	log.Info("written", zap.String("file", out), zap.Int("size", buf.Len()))
	for _, m := range utils.StatusMessages() {
		if m.Type == utils.ERROR {
			log.Warn(m.Text)
		}
	}
}
