//go:build !nogpu

package native

import (
	"github.com/gogpu/atlas/backend"
	"github.com/gogpu/atlas/gpucore"
)

func init() {
	backend.Register(backend.Native, func(limits *gpucore.Limits) (gpucore.Device, error) {
		d, err := Open(limits)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
