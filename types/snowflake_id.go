package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// SnowflakeID is a 64-bit primary key that travels as a JSON string so browsers keep every digit.
type SnowflakeID int64

func ParseSnowflakeID(s string) (SnowflakeID, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake ID %q: %w", s, err)
	}
	return SnowflakeID(i), nil
}

func (s SnowflakeID) Int64() int64 {
	return int64(s)
}

func (s SnowflakeID) String() string {
	return strconv.FormatInt(int64(s), 10)
}

func (s SnowflakeID) IsZero() bool {
	return s == 0
}

func (SnowflakeID) GormDataType() string {
	return "bigint"
}

func (s SnowflakeID) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *SnowflakeID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = 0
		return nil
	case int64:
		*s = SnowflakeID(v)
		return nil
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	default:
		return fmt.Errorf("cannot convert %v to SnowflakeID", value)
	}
}

func (s *SnowflakeID) parse(str string) error {
	id, err := ParseSnowflakeID(str)
	if err != nil {
		return err
	}
	*s = id
	return nil
}

func (s SnowflakeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both the string form and a bare number.
func (s *SnowflakeID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" {
			*s = 0
			return nil
		}
		return s.parse(str)
	}

	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = SnowflakeID(num)
		return nil
	}

	return fmt.Errorf("invalid snowflake ID format")
}
