package domain

// APIVersion names a versioned route group.
type APIVersion string

const (
	APIVersionV1 APIVersion = "v1"
)

func (v APIVersion) String() string {
	return string(v)
}
