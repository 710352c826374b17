package client

import (
	"context"

	"github.com/menta2k/photobooth/pkg/types"
)

type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	LocateWindows(ctx context.Context, model, prompt, imgB64 string) (*types.WindowResult, error)
}
