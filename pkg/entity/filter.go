package entity

import (
	"strconv"
	"strings"
)

// Filter returns the users matching query. An empty query matches everything.
// Age and dob match by substring; username, userId and gender match
// case-insensitively.
func Filter(users []User, query string) []User {
	if query == "" {
		return users
	}
	needle := strings.ToLower(query)
	out := make([]User, 0, len(users))
	for _, user := range users {
		switch {
		case strings.Contains(strconv.Itoa(user.Age), query),
			strings.Contains(user.DOB, query),
			strings.Contains(strings.ToLower(user.Username), needle),
			strings.Contains(strings.ToLower(user.UserID), needle),
			strings.Contains(strings.ToLower(string(user.Gender)), needle):
			out = append(out, user)
		}
	}
	return out
}
