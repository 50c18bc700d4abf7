package strategy

import (
	"bytes"
	"testing"

	"github.com/k0kubun/cast/backend/identity"
	"github.com/k0kubun/cast/config"
	"github.com/k0kubun/cast/template"
	"github.com/k0kubun/cast/tokenize"
)

func TestIsBinary(t *testing.T) {
	tunables := config.Default()

	text := bytes.Repeat([]byte("hello world\n"), 100)
	if IsBinary(text, tunables) {
		t.Fatalf("text input flagged as binary")
	}

	binary := make([]byte, 4096)
	for i := range binary {
		binary[i] = byte(i % 17)
	}
	if !IsBinary(binary, tunables) {
		t.Fatalf("binary input not flagged")
	}

	if IsBinary(nil, tunables) {
		t.Fatalf("empty input flagged as binary")
	}
}

func TestSelectMode(t *testing.T) {
	tunables := config.Default()

	uniform := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		uniform = append(uniform, []byte("connected from 10.0.0.1 at port 8080"))
	}
	if mode := SelectMode(uniform, tunables); mode != tokenize.Strict {
		t.Fatalf("expected Strict for uniform lines, got %v", mode)
	}

	diverse := make([][]byte, 0, 200)
	words := []string{"apple", "banana", "cherry", "date", "elderberry", "fig", "grape"}
	for i := 0; i < 200; i++ {
		line := words[i%len(words)] + " " + words[(i*3+1)%len(words)] + " " + words[(i*5+2)%len(words)]
		diverse = append(diverse, []byte(line+string(rune('a'+i%26))))
	}
	if mode := SelectMode(diverse, tunables); mode != tokenize.Aggressive {
		t.Fatalf("expected Aggressive for diverse lines, got %v", mode)
	}

	if mode := SelectMode(nil, tunables); mode != tokenize.Strict {
		t.Fatalf("expected Strict default for no lines, got %v", mode)
	}
}

func TestEntropyBailout(t *testing.T) {
	tunables := config.Default()

	if EntropyBailout(50, 10, tokenize.Strict, tunables) {
		t.Fatalf("bailout fired below EntropyBailoutMinTemplates")
	}

	if !EntropyBailout(1000, 100, tokenize.Strict, tunables) {
		t.Fatalf("expected bailout: 1000 templates over 100 rows in Strict mode")
	}

	if EntropyBailout(150, 1000, tokenize.Strict, tunables) {
		t.Fatalf("unexpected bailout: 150 templates over 1000 rows is well within ratio")
	}
}

func TestSelectLayoutEmptyRegistry(t *testing.T) {
	reg := template.New()
	be := identity.New()
	layout, err := SelectLayout(reg, config.Default(), be)
	if err != nil {
		t.Fatalf("SelectLayout: %v", err)
	}
	if layout != Unified {
		t.Fatalf("expected Unified for empty registry, got %v", layout)
	}
}

func TestSelectLayoutManyTemplates(t *testing.T) {
	tunables := config.Default()
	reg := template.New()
	for i := 0; i < tunables.LayoutSampleMaxTemplates; i++ {
		id, _ := reg.Intern(string(rune('a' + i)))
		reg.PushRow(id, [][]byte{[]byte("x")})
	}
	layout, err := SelectLayout(reg, tunables, identity.New())
	if err != nil {
		t.Fatalf("SelectLayout: %v", err)
	}
	if layout != Unified {
		t.Fatalf("expected Unified once template count reaches the sampling cap, got %v", layout)
	}
}

func TestLayoutString(t *testing.T) {
	if Unified.String() != "Unified" {
		t.Fatalf("unexpected Unified.String(): %q", Unified.String())
	}
	if Split.String() != "Split" {
		t.Fatalf("unexpected Split.String(): %q", Split.String())
	}
}
