package valkey

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Addr != "localhost:6379" {
		t.Errorf("Addr = %q, want %q", opts.Addr, "localhost:6379")
	}
	if opts.Password != "" {
		t.Errorf("Password = %q, want empty", opts.Password)
	}
	if opts.DB != 0 {
		t.Errorf("DB = %d, want %d", opts.DB, 0)
	}
	if opts.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want %v", opts.ConnectTimeout, 3*time.Second)
	}
	if opts.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", opts.ReadTimeout, 2*time.Second)
	}
	if opts.WriteTimeout != 2*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", opts.WriteTimeout, 2*time.Second)
	}
	if opts.PoolSize != 10 {
		t.Errorf("PoolSize = %d, want %d", opts.PoolSize, 10)
	}
	if opts.MinIdleConns != 2 {
		t.Errorf("MinIdleConns = %d, want %d", opts.MinIdleConns, 2)
	}
}

func TestAuthzOptions(t *testing.T) {
	opts := AuthzOptions()

	if opts.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want %v", opts.ConnectTimeout, 3*time.Second)
	}
	if opts.ReadTimeout != time.Second {
		t.Errorf("ReadTimeout = %v, want %v", opts.ReadTimeout, time.Second)
	}
	if opts.WriteTimeout != time.Second {
		t.Errorf("WriteTimeout = %v, want %v", opts.WriteTimeout, time.Second)
	}
	if opts.PoolSize != 32 {
		t.Errorf("PoolSize = %d, want %d", opts.PoolSize, 32)
	}
	if opts.MinIdleConns != 4 {
		t.Errorf("MinIdleConns = %d, want %d", opts.MinIdleConns, 4)
	}
}

func TestOptionsBuilder(t *testing.T) {
	opts := AuthzOptions().
		WithAddr("valkey:6379").
		WithPassword("secret").
		WithTimeouts(3*time.Second, 2*time.Second, 2*time.Second).
		WithPool(32, 4)

	want := &Options{
		Addr:           "valkey:6379",
		Password:       "secret",
		ConnectTimeout: 3 * time.Second,
		ReadTimeout:    2 * time.Second,
		WriteTimeout:   2 * time.Second,
		PoolSize:       32,
		MinIdleConns:   4,
	}
	if *opts != *want {
		t.Errorf("options = %+v, want %+v", *opts, *want)
	}
}
