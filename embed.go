package herald

import "embed"

// EmbeddedAssets contains the stylesheet every generated site ships under /assets/.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
