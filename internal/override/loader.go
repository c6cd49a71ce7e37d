package override

var (
	_ Loader   = (*DefaultLoader)(nil)
	_ Modifier = (*Config)(nil)
)

type Loader interface {
	Load(path string) (Modifier, error)
}

type Modifier interface {
	Get(name string) (ServerOverride, bool)
	Upsert(ov ServerOverride) (UpsertResult, error)
	List() []ServerOverride
}

type UpsertResult string

const (
	Created UpsertResult = "created"
	Updated UpsertResult = "updated"
	Deleted UpsertResult = "deleted"
	Noop    UpsertResult = "noop"
)
