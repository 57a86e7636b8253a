//go:build stripeset_disable_padding && !stripeset_enable_padding

package opt

// PaddingMult_ force-disabled via the stripeset_disable_padding build tag.
// Use: go build -tags=stripeset_disable_padding
const PaddingMult_ = 0
