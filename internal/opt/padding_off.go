//go:build (amd64 || 386 || arm || mips || mipsle || wasm) && !stripeset_disable_padding && !stripeset_enable_padding

package opt

// PaddingMult_ is zero by default for amd64 and 32-bit architectures.
const PaddingMult_ = 0
