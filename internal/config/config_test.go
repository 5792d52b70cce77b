package config

import "testing"

func TestValidate(t *testing.T) {
	good := Config{Bind: "0.0.0.0", Port: 8080}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, bad := range []Config{
		{Bind: "0.0.0.0", Port: 0},
		{Bind: "0.0.0.0", Port: 70000},
		{Bind: "", Port: 8080},
	} {
		if err := bad.Validate(); err == nil {
			t.Fatalf("config %+v should be rejected", bad)
		}
	}
}

func TestAddr(t *testing.T) {
	c := Config{Bind: "127.0.0.1", Port: 9000}
	if got := c.Addr(); got != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", got)
	}
}
