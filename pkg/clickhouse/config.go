package clickhouse

import "time"

// ClientConfig is turned into a DSN by BuildDSN.
type ClientConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	UseHTTP         bool
	AsyncInsert     bool
	WaitForAsync    bool
	MaxExecTime     time.Duration
}

type ClientOption func(*ClientConfig)

func WithHost(host string) ClientOption {
	return func(c *ClientConfig) { c.Host = host }
}

// WithPort ignores non-positive ports.
func WithPort(port int) ClientOption {
	return func(c *ClientConfig) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithDatabase ignores an empty name.
func WithDatabase(name string) ClientOption {
	return func(c *ClientConfig) {
		if name != "" {
			c.Database = name
		}
	}
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) { c.User, c.Password = user, password }
}

func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) { c.MaxOpenConns, c.MaxIdleConns = maxOpen, maxIdle }
}

func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) { c.DialTimeout, c.ReadTimeout = dial, read }
}

// WithHTTP switches from the native protocol to HTTP.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

// WithAsyncInsert sets async_insert and wait_for_async_insert on every session.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) { c.AsyncInsert, c.WaitForAsync = enabled, wait }
}

// WithMaxExecutionTime caps server-side query time.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.MaxExecTime = d }
}
