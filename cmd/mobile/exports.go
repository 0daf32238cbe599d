package main

/*
#include <stdlib.h>
*/
import "C"

//export SaveRecord
// SaveRecord saves one capture given as JSON and returns the outcome as JSON.
func SaveRecord(payload *C.char) *C.char {
	return C.CString(saveRecordJSON(C.GoString(payload)))
}

//export SyncAll
// SyncAll runs a pass and returns the result as JSON.
func SyncAll() *C.char {
	return C.CString(syncAllJSON())
}

//export GetPendingCount
func GetPendingCount() *C.char {
	return C.CString(pendingCountJSON())
}

//export HasDataToSync
// HasDataToSync returns 1, 0, or -1 on error.
func HasDataToSync() C.int {
	return C.int(hasDataToSync())
}

//export SetOnline
// SetOnline forwards the platform connectivity callback.
func SetOnline(online C.int) {
	setOnline(online != 0)
}
