package temporalx

import "time"

// Config is filled from the application config. An empty Address disables
// Temporal and jobs fall back to the polling worker.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout time.Duration
	DialMaxWait time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration

	Concurrency int
}

func (c Config) Enabled() bool { return c.Address != "" }

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "lectria"
	}
	if c.TaskQueue == "" {
		c.TaskQueue = "lectria"
	}
	if c.RetentionDays < 1 || c.RetentionDays > 365 {
		c.RetentionDays = 7
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.DialMaxWait < 0 {
		c.DialMaxWait = 0
	} else if c.DialMaxWait == 0 {
		c.DialMaxWait = 60 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	if c.Concurrency < 1 {
		c.Concurrency = 2
	}
	return c
}

func (c Config) hasTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
