//go:build windows

package bridge

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

const (
	wmDropFiles      = 0x0233
	wmCopyData       = 0x004A
	wmCopyGlobalData = 0x0049
)

// ChangeWindowMessageFilterEx action; ChangeWindowMessageFilter uses the
// same value for its legacy MSGFLT_ADD.
const msgfltAllow = 1

var (
	user32                          = syscall.NewLazyDLL("user32.dll")
	procChangeWindowMessageFilterEx = user32.NewProc("ChangeWindowMessageFilterEx")
	procChangeWindowMessageFilter   = user32.NewProc("ChangeWindowMessageFilter")
	procFindWindowW                 = user32.NewProc("FindWindowW")

	shell32             = syscall.NewLazyDLL("shell32.dll")
	procDragAcceptFiles = shell32.NewProc("DragAcceptFiles")
)

func allowMessageForWindow(log zerolog.Logger, hwnd uintptr, message uint32) {
	ret, _, err := procChangeWindowMessageFilterEx.Call(
		hwnd, uintptr(message), uintptr(msgfltAllow), 0,
	)
	if ret == 0 {
		log.Warn().Err(err).
			Uint64("hwnd", uint64(hwnd)).
			Uint32("message", message).
			Msg("ChangeWindowMessageFilterEx failed")
	}
}

func enableDropForWindow(log zerolog.Logger, hwnd uintptr) {
	allowMessageForWindow(log, hwnd, wmDropFiles)
	allowMessageForWindow(log, hwnd, wmCopyData)
	allowMessageForWindow(log, hwnd, wmCopyGlobalData)
	procDragAcceptFiles.Call(hwnd, 1)
}

// FixWindowsDropPermissions opens the UIPI message filters that block drag
// and drop into an elevated process. The fix is delayed until the main
// window exists, with a second pass for WebView2 child windows that are
// created late.
func FixWindowsDropPermissions(log zerolog.Logger) {
	go func() {
		time.Sleep(3 * time.Second)

		// Global filter first as a fallback; deprecated but harmless.
		procChangeWindowMessageFilter.Call(uintptr(wmDropFiles), uintptr(msgfltAllow))
		procChangeWindowMessageFilter.Call(uintptr(wmCopyData), uintptr(msgfltAllow))
		procChangeWindowMessageFilter.Call(uintptr(wmCopyGlobalData), uintptr(msgfltAllow))

		titlePtr, _ := syscall.UTF16PtrFromString("QuickTime FastStart")
		hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(titlePtr)))
		if hwnd == 0 {
			log.Warn().Msg("could not find main window for drop fix")
			return
		}
		enableDropForWindow(log, hwnd)

		cb := syscall.NewCallback(func(childHwnd uintptr, lParam uintptr) uintptr {
			enableDropForWindow(log, childHwnd)
			return 1
		})
		windows.EnumChildWindows(windows.HWND(hwnd), cb, nil)

		// WebView2 creates child windows after startup.
		time.Sleep(2 * time.Second)
		windows.EnumChildWindows(windows.HWND(hwnd), cb, nil)

		log.Info().Uint64("hwnd", uint64(hwnd)).Msg("drop permission fix applied")
	}()
}
