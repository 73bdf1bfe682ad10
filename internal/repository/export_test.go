package repository

import "database/sql"

// SharedTestDB exposes the container database to the repository_test package.
func SharedTestDB() *sql.DB { return testDB }
