package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/config"
	"github.com/mogaika/scenedoc/fbx"
	"github.com/mogaika/scenedoc/utils/logger"
)

func summary(s *fbx.Scene) {
	fmt.Printf("version: %d\n", s.Version)
	fmt.Printf("models: %d\n", len(s.Objects.Model))
	for _, m := range s.Objects.Model {
		fmt.Printf("  %-24s %s\n", m.Name, m.Element)
	}
	fmt.Printf("geometries: %d\n", len(s.Objects.Geometry))
	for _, g := range s.Objects.Geometry {
		fmt.Printf("  %-24s vertices %d faces %d uv layers %d\n",
			g.Name, len(g.Vertices)/3, g.FaceCount(), len(g.LayerElementUV))
	}
	fmt.Printf("materials: %d\n", len(s.Objects.Material))
	for _, m := range s.Objects.Material {
		fmt.Printf("  %-24s %s\n", m.Name, m.ShadingModel)
	}
	fmt.Printf("connections: %d\n", len(s.Connections.C))
}

func main() {
	var in, level string
	var onlySummary bool
	flag.StringVar(&in, "in", "", "Binary .fbx file")
	flag.BoolVar(&onlySummary, "summary", false, "Print object counts instead of ascii dump")
	flag.StringVar(&level, "log", "warn", "Log level")
	flag.Parse()

	logger.Set(logger.New(config.LogConfig{Level: level}, os.Stderr))
	defer logger.Sync()
	log := logger.L()

	if in == "" {
		flag.PrintDefaults()
		return
	}

	f, err := os.Open(in)
	if err != nil {
		log.Fatal("open failed", zap.Error(err))
	}
	defer f.Close()

	root, version, err := fbx.Read(f)
	if err != nil {
		log.Fatal("read failed", zap.String("file", in), zap.Error(err))
	}
	log.Debug("read", zap.String("file", in), zap.Uint32("version", version))

	s, err := fbx.Scan(root)
	if err != nil {
		log.Fatal("scan failed", zap.String("file", in), zap.Error(err))
	}
	s.Version = version

	if onlySummary {
		summary(s)
		return
	}
	if err := fbx.Dump(s, os.Stdout); err != nil {
		log.Fatal("dump failed", zap.Error(err))
	}
}
