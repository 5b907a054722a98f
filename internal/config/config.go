package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/alfredjeanlab/gridq/internal/dataset"
)

type Config struct {
	HTTPAddr     string // GRIDQ_HTTP_ADDR (default ":8080")
	GRPCAddr     string // GRIDQ_GRPC_ADDR (default ":9090")
	NATSURL      string // GRIDQ_NATS_URL (optional, empty = no events or NATS queries)
	AuthToken    string // GRIDQ_AUTH_TOKEN (optional, empty = auth disabled)
	DatasetsFile string // GRIDQ_DATASETS_FILE (default "gridq.toml")

	ReloadInterval time.Duration // GRIDQ_RELOAD_INTERVAL (default 0 = disabled)
	Watch          bool          // GRIDQ_WATCH (default true)
	Locale         language.Tag  // GRIDQ_LOCALE (default "en")
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:     envOrDefault("GRIDQ_HTTP_ADDR", ":8080"),
		GRPCAddr:     envOrDefault("GRIDQ_GRPC_ADDR", ":9090"),
		NATSURL:      os.Getenv("GRIDQ_NATS_URL"),
		AuthToken:    os.Getenv("GRIDQ_AUTH_TOKEN"),
		DatasetsFile: envOrDefault("GRIDQ_DATASETS_FILE", "gridq.toml"),
	}

	d, err := time.ParseDuration(envOrDefault("GRIDQ_RELOAD_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("GRIDQ_RELOAD_INTERVAL: %w", err)
	}
	if d < 0 {
		return nil, fmt.Errorf("GRIDQ_RELOAD_INTERVAL: must not be negative")
	}
	c.ReloadInterval = d

	watch, err := strconv.ParseBool(envOrDefault("GRIDQ_WATCH", "true"))
	if err != nil {
		return nil, fmt.Errorf("GRIDQ_WATCH: %w", err)
	}
	c.Watch = watch

	tag, err := language.Parse(envOrDefault("GRIDQ_LOCALE", "en"))
	if err != nil {
		return nil, fmt.Errorf("GRIDQ_LOCALE: %w", err)
	}
	c.Locale = tag

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// datasetsFile is the on-disk shape of the datasets file.
type datasetsFile struct {
	Datasets map[string]dataset.Spec `toml:"datasets"`
}

// LoadDatasets reads the datasets file at path and returns its entries sorted
// by name. Relative file paths inside it are resolved against the file's
// directory. Unknown keys are rejected so typos do not silently drop settings.
func LoadDatasets(path string) ([]dataset.Spec, error) {
	var f datasetsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	base := filepath.Dir(path)
	specs := make([]dataset.Spec, 0, len(f.Datasets))
	for name, spec := range f.Datasets {
		spec.Name = name
		if spec.Kind == dataset.KindFile && spec.Path != "" && !filepath.IsAbs(spec.Path) {
			spec.Path = filepath.Join(base, spec.Path)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs, nil
}
