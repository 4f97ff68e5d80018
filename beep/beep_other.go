//go:build !linux && !darwin

package beep

// No playback path wired up here; the status line carries the
// feedback instead.

func Init()      {}
func PlayStart() {}
func PlayEnd()   {}
func PlayError() {}
