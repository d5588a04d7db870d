package config

import (
	"strings"
	"testing"
)

const v1Doc = `
root:
  name: root
  active: true
  nodes:
    - ruleset:
        name: rs1
        rules:
          - name: r1
            active: true
            do_continue: true
            where:
              kind: eq
              a: "${event.type}"
              b: "email"
            with:
              t:
                from: "${event.type}"
                mode: indexed
                pattern: "[0-9]+"
                group_idx: 0
            actions:
              - id: notify
                payload:
                  message: "matched"
                text:
                  message: "rule ${_ruleset.name} matched"
`

func TestLoad_V1Document(t *testing.T) {
	cfg, err := Load(strings.NewReader(v1Doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Root.Name != "root" {
		t.Fatalf("Root.Name = %q", cfg.Root.Name)
	}
	if len(cfg.Root.Nodes) != 1 || cfg.Root.Nodes[0].Ruleset == nil {
		t.Fatalf("expected one ruleset child, got %#v", cfg.Root.Nodes)
	}
	rs := cfg.Root.Nodes[0].Ruleset
	if len(rs.Rules) != 1 || rs.Rules[0].Name != "r1" {
		t.Fatalf("rules = %#v", rs.Rules)
	}
	if rs.Rules[0].Where == nil || rs.Rules[0].Where.Kind != "eq" {
		t.Fatalf("where = %#v", rs.Rules[0].Where)
	}
	if len(rs.Rules[0].Actions) != 1 || rs.Rules[0].Actions[0].ID != "notify" {
		t.Fatalf("actions = %#v", rs.Rules[0].Actions)
	}
}

const v2Doc = `
apiVersion: tornado/v2
root:
  name: root
  active: true
  nodes: []
`

func TestLoadV2_RequiresApiVersion(t *testing.T) {
	_, err := LoadV2(strings.NewReader(`root: {name: root, active: true}`))
	if err == nil {
		t.Fatalf("expected error when apiVersion marker is absent")
	}
	cfg, err := LoadV2(strings.NewReader(v2Doc))
	if err != nil {
		t.Fatalf("LoadV2: %v", err)
	}
	if cfg.Root.Name != "root" {
		t.Fatalf("Root.Name = %q", cfg.Root.Name)
	}
}
