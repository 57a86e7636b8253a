//go:build stripeset_enable_padding

package opt

// PaddingMult_ force-enabled via the stripeset_enable_padding build tag.
// Use: go build -tags=stripeset_enable_padding
const PaddingMult_ = 1
