package plugin

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Logger used for chain diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Manager holds the registered plugin chain and evaluates it in registration
// order. Registration is only allowed during setup; the runner seals the
// manager when the first run starts so the chain is immutable while turns are
// executing.
type Manager struct {
	mu      sync.RWMutex
	plugins []Plugin
	names   map[string]bool
	sealed  bool
	logger  logging.Logger
}

// NewManager constructs an empty plugin manager.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{names: map[string]bool{}, logger: opts.Logger}
}

// Register appends a plugin to the chain. Names must be unique; registering
// after the manager is sealed is an error.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin must not be nil")
	}

	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return fmt.Errorf("plugin registration rejected: manager already sealed")
	}

	if m.names[name] {
		return fmt.Errorf("plugin %q already registered", name)
	}

	m.names[name] = true
	m.plugins = append(m.plugins, p)

	return nil
}

// Seal closes the registration window. Idempotent.
func (m *Manager) Seal() {
	m.mu.Lock()
	m.sealed = true
	m.mu.Unlock()
}

// Len returns the number of registered plugins.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.plugins)
}

func (m *Manager) chain() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Plugin{}, m.plugins...)
}

// RunBeforeModel evaluates the before-model chain. The first plugin returning
// a non-nil response settles the chain.
func (m *Manager) RunBeforeModel(cc *core.CallbackContext, req *model.Request) (*model.Response, error) {
	for _, p := range m.chain() {
		resp, err := p.BeforeModel(cc, req)
		if err != nil {
			return nil, fmt.Errorf("plugin %q before_model: %w", p.Name(), err)
		}
		if resp != nil {
			m.logger.Debug("plugin.before_model.settled", "plugin", p.Name())
			return resp, nil
		}
	}

	return nil, nil
}

// RunAfterModel evaluates the after-model chain. The first plugin returning a
// non-nil response replaces the model response.
func (m *Manager) RunAfterModel(cc *core.CallbackContext, resp *model.Response) (*model.Response, error) {
	for _, p := range m.chain() {
		replacement, err := p.AfterModel(cc, resp)
		if err != nil {
			return nil, fmt.Errorf("plugin %q after_model: %w", p.Name(), err)
		}
		if replacement != nil {
			m.logger.Debug("plugin.after_model.settled", "plugin", p.Name())
			return replacement, nil
		}
	}

	return nil, nil
}

// RunBeforeTool evaluates the before-tool chain. The first plugin returning a
// non-nil result map settles the chain and skips tool execution.
func (m *Manager) RunBeforeTool(tc *core.ToolContext, toolName string, args map[string]any) (map[string]any, error) {
	for _, p := range m.chain() {
		result, err := p.BeforeTool(tc, toolName, args)
		if err != nil {
			return nil, fmt.Errorf("plugin %q before_tool: %w", p.Name(), err)
		}
		if result != nil {
			m.logger.Debug("plugin.before_tool.settled", "plugin", p.Name(), "tool", toolName)
			return result, nil
		}
	}

	return nil, nil
}

// RunAfterTool evaluates the after-tool chain. The first plugin returning a
// non-nil result map replaces the tool result.
func (m *Manager) RunAfterTool(tc *core.ToolContext, toolName string, args map[string]any, result any) (map[string]any, error) {
	for _, p := range m.chain() {
		replacement, err := p.AfterTool(tc, toolName, args, result)
		if err != nil {
			return nil, fmt.Errorf("plugin %q after_tool: %w", p.Name(), err)
		}
		if replacement != nil {
			m.logger.Debug("plugin.after_tool.settled", "plugin", p.Name(), "tool", toolName)
			return replacement, nil
		}
	}

	return nil, nil
}

// RunOnModelError evaluates the model error chain. The first plugin returning
// a non-nil response recovers from the failure.
func (m *Manager) RunOnModelError(cc *core.CallbackContext, req *model.Request, modelErr error) (*model.Response, error) {
	for _, p := range m.chain() {
		resp, err := p.OnModelError(cc, req, modelErr)
		if err != nil {
			return nil, fmt.Errorf("plugin %q on_model_error: %w", p.Name(), err)
		}
		if resp != nil {
			m.logger.Debug("plugin.on_model_error.recovered", "plugin", p.Name())
			return resp, nil
		}
	}

	return nil, nil
}

// RunOnToolError evaluates the tool error chain. The first plugin returning a
// non-nil result map recovers from the failure.
func (m *Manager) RunOnToolError(tc *core.ToolContext, toolName string, args map[string]any, toolErr error) (map[string]any, error) {
	for _, p := range m.chain() {
		result, err := p.OnToolError(tc, toolName, args, toolErr)
		if err != nil {
			return nil, fmt.Errorf("plugin %q on_tool_error: %w", p.Name(), err)
		}
		if result != nil {
			m.logger.Debug("plugin.on_tool_error.recovered", "plugin", p.Name(), "tool", toolName)
			return result, nil
		}
	}

	return nil, nil
}
