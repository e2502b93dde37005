package domain

import "encoding/json"

// SystemInfo is the host description sent with the first request.
type SystemInfo struct {
	OS          OSInfo          `json:"os_info"`
	Hostname    string          `json:"hostname"`
	Environment EnvironmentInfo `json:"environment"`
	Tools       map[string]bool `json:"tools_available"`
	WorkingDir  string          `json:"working_dir,omitempty"`
	User        string          `json:"user,omitempty"`
}

// OSInfo describes the operating system and architecture.
type OSInfo struct {
	System  string `json:"system"`
	Release string `json:"release,omitempty"`
	Machine string `json:"machine"`
	CPUs    int    `json:"cpus,omitempty"`
}

// EnvironmentInfo holds the interactive environment of the user.
type EnvironmentInfo struct {
	Shell    string `json:"shell,omitempty"`
	Terminal string `json:"terminal,omitempty"`
}

// JSON renders the compact form embedded in the initial payload. The backend
// treats it as an opaque string.
func (s SystemInfo) JSON() string {
	raw, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// AvailableTools lists the detected tools in no particular order.
func (s SystemInfo) AvailableTools() []string {
	var tools []string
	for name, ok := range s.Tools {
		if ok {
			tools = append(tools, name)
		}
	}
	return tools
}
