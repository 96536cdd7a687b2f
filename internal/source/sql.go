package source

const (
	tableExistsSQL = `
SELECT
    count(*)
FROM sqlite_master
WHERE
    type IN ('table', 'view')
    AND name = ?`

	// The table name is validated before it is substituted.
	selectFramesSQL = `
SELECT
    *
FROM "%s"
ORDER BY rowid`
)
