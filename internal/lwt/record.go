package lwt

import "fmt"

// Record is a single row of the exercised table. Email is the guarded field.
type Record struct {
	UserID string `json:"user_id"`
	First  string `json:"first"`
	Last   string `json:"last"`
	City   string `json:"city"`
	Email  string `json:"email"`
}

// RecordKey returns the deterministic key of the i-th fixture record.
func RecordKey(i int) string {
	return fmt.Sprintf("U%d", i)
}

// SeedRecord returns the deterministic fixture record for index i.
func SeedRecord(i int) Record {
	return Record{
		UserID: RecordKey(i),
		First:  fmt.Sprintf("first%d", i),
		Last:   fmt.Sprintf("last%d", i),
		City:   fmt.Sprintf("city%d", i),
		Email:  fmt.Sprintf("email@gmail.com%d", i),
	}
}
