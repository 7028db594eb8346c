//go:build !nogpu

package shader

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// CreateModule compiles AtlasWGSL and creates a HAL shader module from it.
func CreateModule(device hal.Device, label string) (hal.ShaderModule, error) {
	code, err := CompileSPIRV(AtlasWGSL)
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("shader: create module %q: %w", label, err)
	}
	return module, nil
}
