package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// TextFormatter writes human-oriented plain text.
//
// Strings print bare, string slices one per line and maps as sorted
// key/value columns. Anything else is printed as compact JSON.
type TextFormatter struct{}

// Format implements Formatter.
func (f *TextFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []string:
		for _, s := range v {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, scalar(v[k]))
		}
		return tw.Flush()
	default:
		_, err := fmt.Fprintln(w, scalar(v))
		return err
	}
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "<nil>"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
