package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ImportConfig struct {
	BakeFPS                   float32 `yaml:"bake_fps"`
	Trimming                  bool    `yaml:"trimming"`
	RemoveImmutableTracks     bool    `yaml:"remove_immutable_tracks"`
	CreateAnimations          bool    `yaml:"create_animations"`
	NamedSkinBinds            bool    `yaml:"named_skin_binds"`
	DiscardMeshesAndMaterials bool    `yaml:"discard_meshes_and_materials"`
}

type ExportConfig struct {
	Binary  bool    `yaml:"binary"`
	BakeFPS float32 `yaml:"bake_fps"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type NamesConfig struct {
	Encoding string `yaml:"encoding"`
}

// Settings is the whole scenedoc configuration file.
type Settings struct {
	Import ImportConfig `yaml:"import"`
	Export ExportConfig `yaml:"export"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Names  NamesConfig  `yaml:"names"`
}

func Default() *Settings {
	return &Settings{
		Import: ImportConfig{
			BakeFPS:               30,
			RemoveImmutableTracks: true,
			CreateAnimations:      true,
		},
		Export: ExportConfig{
			Binary:  true,
			BakeFPS: 30,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Names: NamesConfig{
			Encoding: GetEncoding().String(),
		},
	}
}

// Load reads yaml from path over the defaults. Empty path returns defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read config %q", path)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "Can't parse config %q", path)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid config %q", path)
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.Import.BakeFPS <= 0 {
		return errors.Errorf("import.bake_fps must be positive, got %v", s.Import.BakeFPS)
	}
	if s.Export.BakeFPS <= 0 {
		return errors.Errorf("export.bake_fps must be positive, got %v", s.Export.BakeFPS)
	}
	return nil
}

// Apply pushes process-wide settings (name encoding) into effect.
func (s *Settings) Apply() error {
	if s.Names.Encoding == "" {
		return nil
	}
	return SetEncoding(s.Names.Encoding)
}

func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "Can't create config dir")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "Can't marshal config")
	}
	return os.WriteFile(path, data, 0644)
}
