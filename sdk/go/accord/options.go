package accord

import "go.uber.org/zap"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath    string
	featurePath   string
	featureValues []float32
	featureSource FeatureSource
	failOpen      *bool
	hashKey       string
	logger        *zap.Logger
}

// WithConfigPath loads an accord configuration file. Without it the
// built-in defaults apply.
func WithConfigPath(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithFeatureFile reads feature values from a little-endian float32 file.
// The file is re-read on every Weigh.
func WithFeatureFile(path string) Option {
	return func(c *clientConfig) { c.featurePath = path }
}

// WithFeatureValues serves feature values from memory.
func WithFeatureValues(values []float32) Option {
	return func(c *clientConfig) { c.featureValues = values }
}

// WithFeatureSource serves feature values from src.
func WithFeatureSource(src FeatureSource) Option {
	return func(c *clientConfig) { c.featureSource = src }
}

// WithFailOpen overrides the policy default for unmatched requests.
func WithFailOpen(failOpen bool) Option {
	return func(c *clientConfig) { c.failOpen = &failOpen }
}

// WithHashKey overrides the key for the submission hash component.
func WithHashKey(key string) Option {
	return func(c *clientConfig) { c.hashKey = key }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	intent string
}

// WrapWithIntent fixes the intent for every call through this wrap,
// overriding Request.Intent.
func WrapWithIntent(intent string) WrapOption {
	return func(w *wrapConfig) { w.intent = intent }
}
