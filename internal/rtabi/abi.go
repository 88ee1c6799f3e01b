// Package rtabi defines the Linux x86-64 process ABI constants shared by
// the code generator and the in-process machine.
package rtabi

// Program entry
const (
	// EntrySymbol is the symbol ld starts execution at.
	EntrySymbol = "_start"

	// TextSection holds the generated code.
	TextSection = ".text"
)

// System calls
const (
	// SysExit is the exit system call number (rax); the status is in rdi.
	SysExit = 60

	// ExitStatusMask is applied by the kernel to the exit status.
	ExitStatusMask = 0xff
)

// Stack layout
const (
	// WordSize is the size of an int and of every stack slot.
	WordSize = 8
)
