package predict

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DatasetConfig is the subset of a YOLO dataset file (yolo_params.yaml)
// the tools read.
type DatasetConfig struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`

	// path is where the file was read from; relative splits resolve
	// against its directory.
	path string
}

// LoadDatasetConfig reads and validates a dataset file.
func LoadDatasetConfig(path string) (*DatasetConfig, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, ConfigError(err, "dataset config not found at %s", path)
	}
	var cfg DatasetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ConfigError(err, "couldn't parse dataset config %s", path)
	}
	cfg.path = path
	return &cfg, nil
}

// Path returns the file the config was read from.
func (c *DatasetConfig) Path() string { return c.path }

// TestImagesDir is <test>/images, relative paths taken from the config
// file's directory.
func (c *DatasetConfig) TestImagesDir() (string, error) {
	if strings.TrimSpace(c.Test) == "" {
		return "", ConfigError(nil, "no 'test' field found in %s, add it with the path to the test split", c.path)
	}
	dir := c.Test
	if !filepath.IsAbs(dir) && c.path != "" {
		dir = filepath.Join(filepath.Dir(c.path), dir)
	}
	return filepath.Join(dir, "images"), nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsImageFile reports whether name carries one of the accepted image
// extensions, case-insensitively.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ResolveImages returns the images to process. A non-empty explicitPath
// wins and must exist; otherwise the test split of the dataset config is
// listed.
func ResolveImages(explicitPath, datasetConfigPath string) ([]string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, InputError(err, "specified image path does not exist: %s", explicitPath)
		}
		return []string{explicitPath}, nil
	}

	cfg, err := LoadDatasetConfig(datasetConfigPath)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.TestImagesDir()
	if err != nil {
		return nil, err
	}
	return ImagesInDir(dir)
}

// ImagesInDir lists the image files directly inside dir.
func ImagesInDir(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, ConfigError(err, "images directory %s does not exist", dir)
	}
	if !info.IsDir() {
		return nil, ConfigError(nil, "images directory %s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ConfigError(err, "couldn't read images directory %s", dir)
	}
	if len(entries) == 0 {
		return nil, ConfigError(nil, "images directory %s is empty", dir)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	if len(images) == 0 {
		return nil, ConfigError(nil, "no valid images found in %s", dir)
	}
	log.WithFields(log.Fields{"dir": dir, "images": len(images)}).Debug("[Resolver] Found images")
	return images, nil
}
