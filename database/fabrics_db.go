package database

import (
	"fmt"
	"strings"
)

// GetFabrics возвращает справочник тканей, отсортированный по имени
func (db *PlantDB) GetFabrics() ([]*Fabric, error) {
	rows, err := db.conn.Query(`SELECT id, name, short_name, created_at FROM fabrics ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fabrics: %w", err)
	}
	defer rows.Close()

	var fabrics []*Fabric
	for rows.Next() {
		var f Fabric
		if err := rows.Scan(&f.ID, &f.Name, &f.ShortName, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fabric: %w", err)
		}
		fabrics = append(fabrics, &f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fabrics: %w", err)
	}

	return fabrics, nil
}

// CreateFabric создает запись справочника тканей. Повторное создание
// существующей ткани не считается ошибкой.
func (db *PlantDB) CreateFabric(name, shortName string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("fabric name is required")
	}

	query := `
		INSERT INTO fabrics (name, short_name)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET short_name = excluded.short_name
	`
	if _, err := db.conn.Exec(query, name, shortName); err != nil {
		return fmt.Errorf("failed to create fabric %q: %w", name, err)
	}

	return nil
}
