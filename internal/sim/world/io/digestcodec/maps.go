package digestcodec

import "sort"

// WriteSortedStrings emits a key-sorted, length-prefixed encoding of names so
// that set-like inputs hash independently of their order.
func WriteSortedStrings(w Writer, tmp *[8]byte, names []string) {
	keys := append([]string(nil), names...)
	sort.Strings(keys)
	WriteU64(w, tmp, uint64(len(keys)))
	for _, k := range keys {
		WriteString(w, tmp, k)
	}
}
