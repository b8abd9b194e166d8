package guild

import "github.com/bwmarrin/snowflake"

// ValidID reports whether id is a well-formed, non-zero snowflake.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	sf, err := snowflake.ParseString(id)
	if err != nil {
		return false
	}
	return sf.Int64() > 0
}
