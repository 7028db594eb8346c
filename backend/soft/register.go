package soft

import (
	"github.com/gogpu/atlas/backend"
	"github.com/gogpu/atlas/gpucore"
)

func init() {
	backend.Register(backend.Soft, func(limits *gpucore.Limits) (gpucore.Device, error) {
		return New(limits), nil
	})
}
