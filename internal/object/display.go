package object

import (
	"fmt"
	"strings"

	"ember/internal/gc"
	"ember/internal/value"
)

// Display renders d the way `print` and an uncaught exception's default report do:
// not a Go-debug representation, a user-facing one.
func Display(d gc.Data) string {
	switch v := d.(type) {
	case nil:
		return "none"
	case *NoneData:
		return "none"
	case *NullData:
		return "null"
	case *BooleanData:
		if v.Value {
			return "true"
		}
		return "false"
	case *NumberData:
		return formatNumber(v.Value)
	case *StringData:
		return v.String()
	case *RegexData:
		return "/" + v.Source + "/"
	case *ArrayData:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = Display(item.Data())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *HashData:
		parts := make([]string, 0, v.Len())
		v.Range(func(key, val value.WeakReference) bool {
			parts = append(parts, Display(key.Data())+": "+Display(val.Data()))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case *FunctionData:
		return "function " + v.Name
	case *InstanceData:
		if v.IsClassObject() {
			return "class " + v.Class.Name()
		}
		return "object(" + v.Class.Name() + ")"
	case *PackageObjectData:
		return "package " + v.Meta.FullName()
	case *LibraryData:
		return "library " + v.Name
	case *LibObjectData:
		return "libobject"
	default:
		return fmt.Sprintf("%v", d)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
