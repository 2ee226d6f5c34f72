package store

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// ParseSeedFile reads demo users from a Markdown table whose header row names
// the columns. Recognised columns: username, email, role, bio, avatar,
// interests (comma separated) and location. Rows without a username or email
// are skipped.
func ParseSeedFile(filePath string) ([]User, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", filePath, err)
	}
	return ParseSeedTable(string(contentBytes))
}

func ParseSeedTable(content string) ([]User, error) {
	var header []string
	var users []User

	for i, line := range strings.Split(content, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}
		if !strings.HasPrefix(trimmedLine, "|") || !strings.HasSuffix(trimmedLine, "|") {
			log.Printf("Skipping line %d not matching table row format: %s", i+1, trimmedLine)
			continue
		}

		cells := splitRow(trimmedLine)
		if header == nil {
			header = make([]string, len(cells))
			for j, cell := range cells {
				header[j] = strings.ToLower(cell)
			}
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}

		user := User{Role: RoleUser, IsVisible: true}
		for j, cell := range cells {
			if j >= len(header) {
				break
			}
			switch header[j] {
			case "username":
				user.Username = cell
			case "email":
				user.Email = cell
			case "role":
				if cell != "" {
					user.Role = strings.ToLower(cell)
				}
			case "bio":
				user.Bio = cell
			case "avatar":
				user.Avatar = cell
			case "location":
				user.Location = cell
			case "interests":
				for _, interest := range strings.Split(cell, ",") {
					if interest = strings.TrimSpace(interest); interest != "" {
						user.Interests = append(user.Interests, interest)
					}
				}
			}
		}

		if user.Username == "" || user.Email == "" {
			log.Printf("Skipping seed row %d without username or email: %s", i+1, trimmedLine)
			continue
		}
		users = append(users, user)
	}

	if header == nil {
		return nil, fmt.Errorf("seed data has no table header")
	}
	return users, nil
}

// splitRow turns "| a | b |" into ["a", "b"].
func splitRow(line string) []string {
	parts := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, len(parts))
	for i, part := range parts {
		cells[i] = strings.TrimSpace(part)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}
	return true
}
