package id

import (
	"github.com/oklog/ulid/v2"
)

// GetUlid returns a lexically sortable id, used for run ids so listings sort
// by start time. Ids made within the same millisecond still increase.
func GetUlid() string {
	return ulid.Make().String()
}
