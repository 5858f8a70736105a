package artifact

import (
	"encoding/csv"
	"fmt"
	"io"
)

func readHeaderFrom(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("artifact has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact header: %w", err)
	}
	return header, nil
}
