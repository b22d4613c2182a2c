package savedata

import (
	"io"

	"streamtrace/common"
)

//SaveJSON writes data as indented JSON to w
func SaveJSON(w io.Writer, data interface{}) error {
	r, err := common.MarshalResult(data)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	if err == nil {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
