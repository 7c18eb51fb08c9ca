package registry

import (
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const regTestPica = "pica"

// mockToolkit is a simple mock for testing.
type mockToolkit struct {
	kind       string
	name       string
	connection string
	tools      []string
	closeCalls int
	closeErr   error
	registered int
}

func (m *mockToolkit) Kind() string                { return m.kind }
func (m *mockToolkit) Name() string                { return m.name }
func (m *mockToolkit) Connection() string          { return m.connection }
func (m *mockToolkit) RegisterTools(_ *mcp.Server) { m.registered++ }
func (m *mockToolkit) Tools() []string             { return m.tools }
func (m *mockToolkit) Close() error                { m.closeCalls++; return m.closeErr }

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestPica, name: "prod"}

	if err := reg.Register(toolkit); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := reg.Get(regTestPica, "prod")
	if !ok {
		t.Fatal("Get() returned false")
	}
	if got.Kind() != regTestPica {
		t.Errorf("Kind() = %q, want %q", got.Kind(), regTestPica)
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestPica, name: "prod"}

	_ = reg.Register(toolkit)
	err := reg.Register(toolkit)
	if !errors.Is(err, ErrDuplicateToolkit) {
		t.Errorf("Register() error = %v, want ErrDuplicateToolkit", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get("nonexistent", "name"); ok {
		t.Error("Get() returned true for nonexistent toolkit")
	}
}

func TestRegistry_GetByKind(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: regTestPica, name: "prod"})
	_ = reg.Register(&mockToolkit{kind: regTestPica, name: "staging"})
	_ = reg.Register(&mockToolkit{kind: "other", name: "main"})

	if got := reg.GetByKind(regTestPica); len(got) != 2 {
		t.Errorf("GetByKind(pica) returned %d toolkits, want 2", len(got))
	}
}

func TestRegistry_AllSortedAndAllTools(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: regTestPica, name: "staging", tools: []string{"execute_action"}})
	_ = reg.Register(&mockToolkit{kind: regTestPica, name: "prod", tools: []string{"get_available_actions", "get_action_knowledge"}})

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d toolkits, want 2", len(all))
	}
	if all[0].Name() != "prod" || all[1].Name() != "staging" {
		t.Errorf("All() order = [%s %s], want [prod staging]", all[0].Name(), all[1].Name())
	}

	if tools := reg.AllTools(); len(tools) != 3 {
		t.Errorf("AllTools() returned %d tools, want 3", len(tools))
	}
}

func TestRegistry_GetToolkitForTool(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: regTestPica, name: "prod", connection: "acme", tools: []string{"execute_action"}})

	kind, name, conn, found := reg.GetToolkitForTool("execute_action")
	if !found || kind != regTestPica || name != "prod" || conn != "acme" {
		t.Errorf("GetToolkitForTool() = %q %q %q %v", kind, name, conn, found)
	}

	if _, _, _, found := reg.GetToolkitForTool("unknown"); found {
		t.Error("GetToolkitForTool(unknown) found = true")
	}
}

func TestRegistry_CreateAndRegister(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFactory("test", func(name string, _ map[string]any) (Toolkit, error) {
		return &mockToolkit{kind: "test", name: name}, nil
	})
	reg.RegisterFactory("broken", func(string, map[string]any) (Toolkit, error) {
		return nil, errors.New("bad config")
	})

	if err := reg.CreateAndRegister(ToolkitConfig{Kind: "test", Name: "a"}); err != nil {
		t.Fatalf("CreateAndRegister() error = %v", err)
	}
	if err := reg.CreateAndRegister(ToolkitConfig{Kind: "missing", Name: "a"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("CreateAndRegister(missing) error = %v, want ErrUnknownKind", err)
	}
	if err := reg.CreateAndRegister(ToolkitConfig{Kind: "broken", Name: "a"}); err == nil {
		t.Error("CreateAndRegister(broken) expected error")
	}
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestPica, name: "prod"}
	_ = reg.Register(toolkit)

	if err := reg.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if toolkit.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", toolkit.closeCalls)
	}
}

func TestRegistry_CloseWithError(t *testing.T) {
	reg := NewRegistry()
	closeErr := errors.New("close error")
	ok := &mockToolkit{kind: regTestPica, name: "a"}
	_ = reg.Register(ok)
	_ = reg.Register(&mockToolkit{kind: regTestPica, name: "b", closeErr: closeErr})

	err := reg.Close()
	if !errors.Is(err, closeErr) {
		t.Errorf("Close() error = %v, want wrapped close error", err)
	}
	if ok.closeCalls != 1 {
		t.Error("healthy toolkit was not closed")
	}
}

func TestRegistry_RegisterAllTools(t *testing.T) {
	reg := NewRegistry()
	a := &mockToolkit{kind: regTestPica, name: "prod"}
	b := &mockToolkit{kind: regTestPica, name: "staging"}
	_ = reg.Register(a)
	_ = reg.Register(b)

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	reg.RegisterAllTools(server)

	if a.registered != 1 || b.registered != 1 {
		t.Errorf("registered = %d, %d, want 1, 1", a.registered, b.registered)
	}
}

func TestRegisterBuiltinFactories(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltinFactories(reg)

	err := reg.CreateAndRegister(ToolkitConfig{Kind: regTestPica, Name: "main", Config: map[string]any{}})
	if err == nil {
		t.Fatal("expected missing secret error")
	}
	if errors.Is(err, ErrUnknownKind) {
		t.Error("pica factory not registered")
	}
}
