// Package bootstrap orchestrates the ordered startup sequence (4.F): memory
// hygiene, TLS and E2E identity derivation, request_data binding, attestation,
// and the production-vs-development abort decision. Database connection, DEK
// initialization, and starting the admission endpoint and scheduler remain
// the dependency injection container's job, since those already have a
// natural lazy-singleton home there; this package owns only the steps that
// precede and gate them.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// yamaPtraceScopePath is the kernel knob restricting which processes may
// ptrace which others. A value of 0 means any process owned by the same
// uid can attach to any other, which would let a compromised co-tenant
// process on the same host attach a debugger to this one and read enclave
// memory directly; values of 1-3 progressively restrict that.
const yamaPtraceScopePath = "/proc/sys/kernel/yama/ptrace_scope"

// HardenProcess applies the memory-hygiene posture required before any key
// material is generated (4.F step 1): it disables core dumps outright, since
// a core dump would write decrypted DEKs and credential plaintext straight
// to disk, and it checks (without attempting to change) the ptrace
// restriction, since a process cannot raise its own hardening here. Failure
// to disable core dumps is fatal; a loose ptrace scope is logged, not fatal,
// since it reflects host policy bootstrap cannot control.
func HardenProcess(logger *slog.Logger) error {
	if err := disableCoreDumps(); err != nil {
		return fmt.Errorf("failed to disable core dumps: %w", err)
	}

	scope, err := readPtraceScope()
	if err != nil {
		logger.Warn("could not read ptrace scope; assuming unrestricted", slog.Any("error", err))
		return nil
	}
	if scope < 1 {
		logger.Warn("ptrace scope is unrestricted; a co-located process could attach and read enclave memory",
			slog.Int("ptrace_scope", scope))
	}

	return nil
}

func disableCoreDumps() error {
	limit := unix.Rlimit{Cur: 0, Max: 0}
	return unix.Setrlimit(syscall.RLIMIT_CORE, &limit)
}

func readPtraceScope() (int, error) {
	data, err := os.ReadFile(yamaPtraceScopePath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
