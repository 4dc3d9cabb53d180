package rate

const (
	LoginPrefix    = "al"
	LoginIPPrefix  = "ali"
	RegisterPrefix = "ar"
	ResendPrefix   = "avr"
	PasswordPrefix = "apc"
)

func bucketKey(prefix, key string) string {
	return prefix + ":" + key
}
