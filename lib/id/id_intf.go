package id

// Gen generates the number id.
type Gen func() uint64

// UUIDGen hands out ids both as numbers and as their decimal text.
type UUIDGen interface {
	Number() uint64
	Str() string
}

var (
	_ UUIDGen = (*uuidDelegator)(nil)
)

type uuidDelegator struct {
	number Gen
	str    func() string
}

func (id *uuidDelegator) Number() uint64 { return id.number() }
func (id *uuidDelegator) Str() string    { return id.str() }

// NanoIDGen generates url-safe random text ids.
type NanoIDGen func() string
