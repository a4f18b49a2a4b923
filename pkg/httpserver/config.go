package httpserver

import "time"

type Config struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`             // Addr is the address the server listens on.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"` // ReadHeaderTimeout bounds reading request headers.
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`       // ReadTimeout is the maximum duration for reading the entire request.
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"45s"`      // WriteTimeout covers a full checkout, including gateway round trips.
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`      // IdleTimeout is the keep-alive idle limit.
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`   // ShutdownTimeout is the time allowed for in-flight requests on shutdown.
}
