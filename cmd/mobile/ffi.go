// Package main provides the FFI bridge for mobile platforms.
// Build as a shared library: libfieldcapture.so (Android) / fieldcapture.framework (iOS).
// Every function returning *C.char hands ownership to the caller, who must
// release it with FreeString.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

//export Init
// Init opens the offline store in dataDir and starts connectivity polling.
// Returns 0 on success and -1 on failure (see GetLastError).
func Init(configPath, dataDir *C.char) C.int {
	if err := initialize(C.GoString(configPath), C.GoString(dataDir)); err != nil {
		return -1
	}
	return 0
}

//export Cleanup
// Cleanup stops polling and closes the store.
func Cleanup() {
	shutdown()
}

//export GetLastError
// GetLastError returns the last error message.
func GetLastError() *C.char {
	return C.CString(getLastError())
}

//export FreeString
func FreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func main() {
	// Required for c-shared build mode; never executed.
}
