package services

import "time"

// GetCurrentTimestamp は現在時刻をISO8601形式（UTC）で返します
func GetCurrentTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
