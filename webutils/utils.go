package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/utils/logger"
)

// MaxUploadSize bounds multipart bodies kept in memory.
const MaxUploadSize = 64 << 20

func WriteFileHeaders(w http.ResponseWriter, name, mime string) {
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name, mime string) {
	WriteFileHeaders(w, name, mime)
	if _, err := io.Copy(w, in); err != nil {
		logger.L().Warn("Error when writing file", zap.String("stage", "web"), zap.String("file", name), zap.Error(err))
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	if data, err := json.MarshalIndent(v, "", "  "); err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		WriteFile(w, bytes.NewReader(data), fileName+".json", "application/json")
	}
}

// ReadFormFile returns the multipart file under formFileKey of a POST request.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, string, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, "", errors.Errorf("Invalid http method %q", r.Method)
	}
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, "", errors.Wrapf(err, "Failed to parse form")
	}

	f, header, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to get file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to read")
	}
	return data, header.Filename, nil
}

// ReadFormFiles returns every file under key of an already parsed multipart form.
func ReadFormFiles(r *http.Request, key string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	if r.MultipartForm == nil {
		return result, nil
	}
	for _, fh := range r.MultipartForm.File[key] {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open %q", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read %q", fh.Filename)
		}
		result[fh.Filename] = data
	}
	return result, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		logger.L().Warn("Error when writing response", zap.String("stage", "web"), zap.Error(err))
	}
}

// StatusCode maps conversion error kinds onto http statuses.
func StatusCode(err error) int {
	switch errs.KindOf(err) {
	case errs.MalformedInput, errs.DataRange, errs.Topology, errs.UnsupportedExtension:
		return http.StatusUnprocessableEntity
	case errs.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, err error) {
	WriteErrorStatus(w, StatusCode(err), err)
}

func WriteErrorStatus(w http.ResponseWriter, code int, err error) {
	type jError struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}
	je := &jError{Error: err.Error()}
	if k := errs.KindOf(err); k != errs.Unknown {
		je.Kind = k.String()
	}
	data, merr := json.Marshal(je)
	if merr != nil {
		logger.L().Error("Error marshaling error", zap.String("stage", "web"), zap.Error(err), zap.NamedError("marshal", merr))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	logger.L().Info("HERR", zap.String("stage", "web"), zap.Int("code", code), zap.ByteString("body", data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteResult(w, data)
}
