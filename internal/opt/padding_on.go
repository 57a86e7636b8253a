//go:build !(amd64 || 386 || arm || mips || mipsle || wasm) && !stripeset_disable_padding && !stripeset_enable_padding

package opt

// PaddingMult_ multiplies every stripe pad. Padding is enabled by default
// for architectures that are NOT:
// - amd64 (x86_64): adjacent-line prefetch makes padding less critical
// - 32-bit architectures (386, arm, mips, mipsle, wasm): memory constraints
//
// Enabled for: arm64, s390x, ppc64, ppc64le, riscv64, loong64, mips64, etc.
const PaddingMult_ = 1
