// Package config loads track fitting configuration from files and environment.
package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	trackfit "github.com/milosgajdos/go-trackfit"
	"github.com/milosgajdos/go-trackfit/detector"
	"github.com/milosgajdos/go-trackfit/fit"
	"github.com/milosgajdos/go-trackfit/kalman/kf"
	"github.com/milosgajdos/go-trackfit/noise"
	"github.com/milosgajdos/go-trackfit/track"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"
)

// EnvPrefix prefixes environment variables overriding configuration keys.
// Nested keys are joined with underscores, e.g. TRACKFIT_DETECTOR_LAYERS.
const EnvPrefix = "TRACKFIT"

// Config is track fitting configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Detector DetectorConfig `mapstructure:"detector"`
	Lines    LineConfig     `mapstructure:"lines"`
	Helices  HelixConfig    `mapstructure:"helices"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Finder   FinderConfig   `mapstructure:"finder"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// DetectorConfig configures a layered strip detector.
type DetectorConfig struct {
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Height float64 `mapstructure:"height" validate:"gt=0"`
	Length float64 `mapstructure:"length" validate:"gte=0"`
	Layers int     `mapstructure:"layers" validate:"min=1"`
	Strips int     `mapstructure:"strips" validate:"min=1"`
	// Smear is standard deviation of gaussian hit smearing; zero disables smearing
	Smear float64 `mapstructure:"smear" validate:"gte=0"`
	Seed  uint64  `mapstructure:"seed"`
}

// LineConfig configures straight track generation.
type LineConfig struct {
	Count          int     `mapstructure:"count"           validate:"min=0"`
	Slope          float64 `mapstructure:"slope"`
	Intercept      float64 `mapstructure:"intercept"`
	SlopeSigma     float64 `mapstructure:"slope_sigma"     validate:"gte=0"`
	InterceptSigma float64 `mapstructure:"intercept_sigma" validate:"gte=0"`
	Seed           uint64  `mapstructure:"seed"`
}

// HelixConfig configures helix generation.
type HelixConfig struct {
	Count    int     `mapstructure:"count"     validate:"min=0"`
	X        float64 `mapstructure:"x"`
	Y        float64 `mapstructure:"y"`
	PhiMin   float64 `mapstructure:"phi_min"`
	PhiMax   float64 `mapstructure:"phi_max"   validate:"gtefield=PhiMin"`
	KappaMin float64 `mapstructure:"kappa_min"`
	KappaMax float64 `mapstructure:"kappa_max" validate:"gtefield=KappaMin"`
	Seed     uint64  `mapstructure:"seed"`
}

// FilterConfig configures filtering.
type FilterConfig struct {
	Joseph bool `mapstructure:"joseph"`
	// InitVar is the variance of the diffuse initial state
	InitVar float64 `mapstructure:"init_var" validate:"gt=0"`
}

// FinderConfig configures track finding.
type FinderConfig struct {
	Gate       float64 `mapstructure:"gate"       validate:"gt=0"`
	MinHits    int     `mapstructure:"min_hits"   validate:"min=1"`
	SeedVar    float64 `mapstructure:"seed_var"   validate:"gt=0"`
	Scattering float64 `mapstructure:"scattering" validate:"gte=0"`
}

var defaults = map[string]any{
	"log.level":             "info",
	"log.format":            "text",
	"detector.x":            1.0,
	"detector.y":            0.0,
	"detector.height":       0.5,
	"detector.length":       8.0,
	"detector.layers":       10,
	"detector.strips":       25,
	"detector.smear":        0.0,
	"detector.seed":         1,
	"lines.count":           10,
	"lines.slope":           0.0,
	"lines.intercept":       0.0,
	"lines.slope_sigma":     0.01,
	"lines.intercept_sigma": 0.05,
	"lines.seed":            1,
	"helices.count":         10,
	"helices.x":             0.0,
	"helices.y":             0.0,
	"helices.phi_min":       -0.02,
	"helices.phi_max":       0.02,
	"helices.kappa_min":     -0.01,
	"helices.kappa_max":     0.01,
	"helices.seed":          1,
	"filter.joseph":         false,
	"filter.init_var":       1e4,
	"finder.gate":           fit.DefaultGate,
	"finder.min_hits":       fit.DefaultMinHits,
	"finder.seed_var":       fit.DefaultSeedVar,
	"finder.scattering":     0.0,
}

// Load reads configuration from the file at path, overrides it with environment
// variables and validates it. The file format is deduced from the path extension.
// Empty path loads the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate validates configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Logger returns logger writing to w as configured.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDetector creates the configured layered detector.
func (c *Config) NewDetector() (*detector.Detector, error) {
	d := c.Detector

	var smear trackfit.Noise
	var err error
	if d.Smear > 0 {
		smear, err = noise.NewGaussian([]float64{0}, mat.NewSymDense(1, []float64{d.Smear * d.Smear}), d.Seed)
	} else {
		smear, err = noise.NewZero(1)
	}
	if err != nil {
		return nil, err
	}

	return detector.NewLayered(d.X, d.Y, d.Height, d.Length, d.Layers, d.Strips, smear)
}

// NewLineGenerator creates the configured line generator.
func (c *Config) NewLineGenerator() (*track.LineGenerator, error) {
	l := c.Lines
	cov := mat.NewSymDense(2, []float64{
		l.SlopeSigma * l.SlopeSigma, 0,
		0, l.InterceptSigma * l.InterceptSigma,
	})

	return track.NewLineGenerator(l.Count, []float64{l.Slope, l.Intercept}, cov, l.Seed)
}

// NewHelixGenerator creates the configured helix generator.
func (c *Config) NewHelixGenerator() (*track.HelixGenerator, error) {
	h := c.Helices

	return track.NewHelixGenerator(h.Count, h.X, h.Y, [2]float64{h.PhiMin, h.PhiMax}, [2]float64{h.KappaMin, h.KappaMax}, h.Seed)
}

// NewFilter creates the configured Kalman filter.
func (c *Config) NewFilter() *kf.KF {
	if c.Filter.Joseph {
		return kf.New(kf.WithJoseph())
	}
	return kf.New()
}

// FitterOptions returns the configured fitter options logging to l.
func (c *Config) FitterOptions(l *slog.Logger) []fit.Option {
	return []fit.Option{
		fit.WithFilter(c.NewFilter()),
		fit.WithLogger(l),
	}
}

// FinderOptions returns the configured finder options.
func (c *Config) FinderOptions() []fit.FinderOption {
	return []fit.FinderOption{
		fit.WithGate(c.Finder.Gate),
		fit.WithMinHits(c.Finder.MinHits),
		fit.WithSeedVar(c.Finder.SeedVar),
		fit.WithScattering(c.Finder.Scattering),
		fit.WithFinderFilter(c.NewFilter()),
	}
}
