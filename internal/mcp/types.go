package mcp

import (
	"github.com/1broseidon/deskmod/internal/ipc"
	"github.com/1broseidon/deskmod/internal/lifecycle"
)

// StatusInput is the input for the host_status tool.
type StatusInput struct{}

// ListAddonsInput is the input for the list_addons tool.
type ListAddonsInput struct{}

// ListAddonsOutput is the output for the list_addons tool.
type ListAddonsOutput struct {
	Addons []ipc.AddonInfo `json:"addons"`
}

// ListModulesInput is the input for the list_modules tool.
type ListModulesInput struct {
	Addon       string `json:"addon,omitempty" jsonschema:"Only list modules of this addon (case-insensitive)"`
	EnabledOnly bool   `json:"enabled_only,omitempty" jsonschema:"When true, only list modules that are currently shown"`
}

// ListModulesOutput is the output for the list_modules and toggle_all tools.
type ListModulesOutput struct {
	Modules []lifecycle.ModuleInfo `json:"modules"`
}

// SetModuleEnabledInput is the input for the set_module_enabled tool.
type SetModuleEnabledInput struct {
	Module  string `json:"module" jsonschema:"required,Module key (e.g. samplemodule)"`
	Addon   string `json:"addon,omitempty" jsonschema:"Owning addon name; needed only when the module key is shared by several addons"`
	Enabled bool   `json:"enabled" jsonschema:"required,true to show the module, false to hide it"`
}

// SetModuleEnabledOutput is the output for the set_module_enabled tool.
type SetModuleEnabledOutput struct {
	Module lifecycle.ModuleInfo `json:"module"`
}

// ToggleAllInput is the input for the toggle_all tool.
type ToggleAllInput struct{}

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []ipc.MonitorInfo `json:"monitors"`
}
