// Package doctor runs preflight diagnostics: can we see the model, the
// microphone, the keyboard, and the clipboard on this machine?
package doctor

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"

	"blurt/audio"
	"blurt/hotkey"
)

// Run executes all checks and returns an exit code (0=all pass, 1=any fail).
func Run(modelPath string, sampleRate int) int {
	fmt.Println("blurt doctor - system diagnostics")
	fmt.Println("=================================")

	allPass := true
	if !checkModel(modelPath) {
		allPass = false
	}
	if !checkMicrophone(sampleRate) {
		allPass = false
	}
	if !checkKeyState() {
		allPass = false
	}
	if !checkClipboard() {
		allPass = false
	}
	if !checkKeystrokes() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkModel(path string) bool {
	fmt.Println()
	fmt.Println("[1/5] Speech model file")

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Download a ggml model and point -model at it")
		return false
	}
	if info.Size() < 1<<20 {
		fmt.Printf("  FAIL: %s is only %d bytes, not a ggml model\n", path, info.Size())
		return false
	}
	fmt.Printf("  PASS: %s (%d MB)\n", path, info.Size()>>20)
	return true
}

func checkMicrophone(sampleRate int) bool {
	fmt.Println()
	fmt.Println("[2/5] Microphone capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: audio backend init: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: listing devices: %v\n", err)
		return false
	}
	fmt.Printf("  %d capture device(s) found\n", len(devices))

	capture, err := ctx.NewCapture(nil, audio.CaptureConfig{SampleRate: uint32(sampleRate), Channels: 1})
	if err != nil {
		fmt.Printf("  FAIL: opening default device: %v\n", err)
		return false
	}
	defer capture.Close()

	var samples atomic.Int64
	capture.SetCallback(func(chunk []float32) {
		samples.Add(int64(len(chunk)))
	})
	if err := capture.Start(); err != nil {
		fmt.Printf("  FAIL: starting capture: %v\n", err)
		return false
	}
	time.Sleep(500 * time.Millisecond)
	capture.Stop()
	capture.ClearCallback()

	if samples.Load() == 0 {
		fmt.Println("  FAIL: stream opened but delivered no samples")
		return false
	}
	fmt.Printf("  PASS: %s delivered %d samples in 500ms\n", capture.DeviceName(), samples.Load())
	return true
}

func checkKeyState() bool {
	fmt.Println()
	fmt.Println("[3/5] Keyboard state access")

	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s\n", msg)
	return true
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[4/5] Clipboard")

	testStr := fmt.Sprintf("blurt-doctor-%d", time.Now().UnixNano())
	type result struct {
		got string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		if err := clipboard.WriteAll(testStr); err != nil {
			ch <- result{err: err}
			return
		}
		got, err := clipboard.ReadAll()
		ch <- result{got: got, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			fmt.Printf("  FAIL: %v\n", res.err)
			return false
		}
		if res.got != testStr {
			fmt.Printf("  FAIL: wrote %q, read back %q\n", testStr, res.got)
			return false
		}
		fmt.Println("  PASS: clipboard write/read verified")
		return true
	case <-time.After(3 * time.Second):
		fmt.Println("  FAIL: clipboard timed out (clipboard tool hung?)")
		return false
	}
}

func checkKeystrokes() bool {
	fmt.Println()
	fmt.Println("[5/5] Keystroke output")

	if _, err := keybd_event.NewKeyBonding(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  On linux: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}
	fmt.Println("  PASS: keystroke device initialized")
	return true
}
