package web

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/document"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
	"github.com/mogaika/scenedoc/vfs"
	"github.com/mogaika/scenedoc/webutils"
)

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Server) flags(r *http.Request) document.ImportFlags {
	flags := document.FlagsFromConfig(s.Settings.Import)
	flags.NamedSkinBinds = queryBool(r, "named_binds", flags.NamedSkinBinds)
	return flags
}

// parseUpload reads the "file" form field into a new state. Files sent as
// "resources" resolve external buffer and image uris.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*state.State, string, bool) {
	data, name, err := webutils.ReadFormFile(r, "file")
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return nil, "", false
	}
	resources, err := webutils.ReadFormFiles(r, "resources")
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return nil, "", false
	}
	var loader vfs.Directory
	if len(resources) != 0 {
		md := vfs.NewMemDirectory(name)
		for n, d := range resources {
			md.Put(n, d)
		}
		loader = md
	}
	st, err := s.Doc.AppendFromBuffer(data, "", s.flags(r), loader)
	if err != nil {
		utils.StatusWarnf("%s: %v", name, err)
		webutils.WriteError(w, errors.Wrapf(err, "parse %q", name))
		return nil, "", false
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base != "" && base != "." {
		st.Filename = base
	}
	return st, name, true
}

func (s *Server) HandlerConvert(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" && !s.Settings.Export.Binary {
		to = "gltf"
	}
	format, err := document.ParseFormat(to)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	st, name, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	if queryBool(r, "roundtrip", true) {
		st, err = s.Doc.Roundtrip(st, s.flags(r), document.OptionsFromConfig(s.Settings.Import))
		if err != nil {
			webutils.WriteError(w, errors.Wrapf(err, "convert %q", name))
			return
		}
	}

	var out bytes.Buffer
	if err := s.Doc.Write(&out, st, format); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "write %q", name))
		return
	}
	utils.StatusInfof("converted %s to %s", name, format.Extension())
	logger.L().Info("converted", zap.String("stage", "web"), zap.String("file", name), zap.Int("size", out.Len()))
	webutils.WriteFile(w, &out, st.Filename+format.Extension(), format.MimeType())
}

type inspectResult struct {
	*document.Summary
	Dump string `json:"dump"`
}

func (s *Server) HandlerInspect(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	res := &inspectResult{
		Summary: document.Summarize(st),
		Dump:    utils.SDump(st.Skeletons),
	}
	if queryBool(r, "download", false) {
		webutils.WriteJsonFile(w, res, st.Filename)
	} else {
		webutils.WriteJson(w, res)
	}
}

func (s *Server) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	type jMessage struct {
		Time  string `json:"time"`
		Text  string `json:"text"`
		Error bool   `json:"error"`
	}
	messages := utils.StatusMessages()
	result := make([]jMessage, 0, len(messages))
	for _, m := range messages {
		result = append(result, jMessage{
			Time:  m.Time.Format("15:04:05"),
			Text:  m.Text,
			Error: m.Type == utils.ERROR,
		})
	}
	webutils.WriteJson(w, result)
}
