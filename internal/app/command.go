package app

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/joacominatel/tabula/internal/format"
)

// CommandKind identifies a user command.
type CommandKind int

const (
	CmdHelp CommandKind = iota
	CmdExit

	// table model
	CmdAddColumn
	CmdRemoveColumn
	CmdRenameColumn
	CmdChangeType
	CmdAddRow
	CmdEditCell
	CmdRemoveRow
	CmdClearTable
	CmdRename
	CmdInferTypes
	CmdPrintTable
	CmdPrintTableData
	CmdCurrentTable
	CmdNewTable

	// files
	CmdLoadFile
	CmdSaveFile
	CmdLoadCSVBatch

	// store
	CmdLoadTable
	CmdSaveTable
	CmdDeleteTable
	CmdListTables
	CmdSearch
	CmdCreateDatabase
	CmdDeleteDatabase
	CmdListDatabases
	CmdSelectDatabase
	CmdCurrentDatabase
	CmdCloseDatabase
	CmdConnect
	CmdSaveConnection
	CmdListConnections
	CmdRemoveConnection

	// settings
	CmdSettings
	CmdSet
	CmdDefaultSettings

	// grid
	CmdCopyCell
	CmdCopyRow
)

// Command is parsed user input: what to do, the file format for load/save
// commands, and any trailing argument in its original case.
type Command struct {
	Kind   CommandKind
	Format format.Format
	Arg    string
}

// Fields splits the trailing argument on whitespace.
func (c Command) Fields() []string {
	return strings.Fields(c.Arg)
}

type commandEntry struct {
	phrase string
	kind   CommandKind
	format format.Format
	help   string
}

var commands = []commandEntry{
	{"help", CmdHelp, 0, "show this help"},
	{"print help", CmdHelp, 0, ""},
	{"exit", CmdExit, 0, "quit (asks first if the table is unsaved)"},
	{"quit", CmdExit, 0, ""},

	{"add column", CmdAddColumn, 0, "add a column: name and type"},
	{"remove column", CmdRemoveColumn, 0, "remove a column by name"},
	{"rename column", CmdRenameColumn, 0, "rename a column"},
	{"change type", CmdChangeType, 0, "change a column's type"},
	{"add row", CmdAddRow, 0, "add a row, one value per column"},
	{"edit cell", CmdEditCell, 0, "edit one cell by row and column"},
	{"remove row", CmdRemoveRow, 0, "remove a row by number"},
	{"clear table", CmdClearTable, 0, "remove all columns and rows"},
	{"rename", CmdRename, 0, "rename the table"},
	{"infer types", CmdInferTypes, 0, "infer column types from the first data row"},
	{"print table", CmdPrintTable, 0, "show the table"},
	{"print table data", CmdPrintTableData, 0, "show the table as raw JSON"},
	{"current table", CmdCurrentTable, 0, "show the table name and state"},
	{"new table", CmdNewTable, 0, "start a new empty table"},

	{"load csv", CmdLoadFile, format.CSV, "load a CSV file"},
	{"load xl", CmdLoadFile, format.XLSX, "load an Excel workbook"},
	{"load xlsx", CmdLoadFile, format.XLSX, ""},
	{"load ods", CmdLoadFile, format.ODS, "load an OpenDocument spreadsheet"},
	{"load pdf", CmdLoadFile, format.PDF, "load a table from a PDF"},
	{"load json", CmdLoadFile, format.JSON, "load a JSON table"},
	{"save csv", CmdSaveFile, format.CSV, "save as CSV"},
	{"save xl", CmdSaveFile, format.XLSX, "save as Excel"},
	{"save xlsx", CmdSaveFile, format.XLSX, ""},
	{"save ods", CmdSaveFile, format.ODS, "save as OpenDocument spreadsheet"},
	{"save pdf", CmdSaveFile, format.PDF, "save as PDF"},
	{"save json", CmdSaveFile, format.JSON, "save as JSON"},
	{"load csv batch", CmdLoadCSVBatch, 0, "save every CSV in a directory to the database"},

	{"load table", CmdLoadTable, 0, "load a table from the database"},
	{"save table", CmdSaveTable, 0, "save the table to the database"},
	{"delete table", CmdDeleteTable, 0, "delete a table from the database"},
	{"list tables", CmdListTables, 0, "list database tables"},
	{"search", CmdSearch, 0, "search the database for text"},
	{"create database", CmdCreateDatabase, 0, "create a SQLite database and connect"},
	{"delete database", CmdDeleteDatabase, 0, "delete a SQLite database"},
	{"list databases", CmdListDatabases, 0, "list SQLite databases"},
	{"select database", CmdSelectDatabase, 0, "connect to a SQLite database"},
	{"current database", CmdCurrentDatabase, 0, "show the connected database"},
	{"close database", CmdCloseDatabase, 0, "disconnect"},
	{"connect", CmdConnect, 0, "connect to a saved profile or a postgres:// DSN"},
	{"save connection", CmdSaveConnection, 0, "save the current PostgreSQL connection"},
	{"list connections", CmdListConnections, 0, "list saved connections"},
	{"remove connection", CmdRemoveConnection, 0, "forget a saved connection"},

	{"settings", CmdSettings, 0, "show current settings"},
	{"print current settings", CmdSettings, 0, ""},
	{"set", CmdSet, 0, "set <setting> on|off"},
	{"default settings", CmdDefaultSettings, 0, "restore default settings"},

	{"copy cell", CmdCopyCell, 0, "copy the selected cell"},
	{"copy row", CmdCopyRow, 0, "copy the selected row"},
}

// byLength lists commands longest phrase first so "load csv batch"
// wins over "load csv".
var byLength = func() []commandEntry {
	out := append([]commandEntry(nil), commands...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(strings.Fields(out[i].phrase)) > len(strings.Fields(out[j].phrase))
	})
	return out
}()

// suggestCutoff is the minimum similarity for a "did you mean" hint.
const suggestCutoff = 0.6

// ParseCommand resolves a command line. Matching is case-insensitive on
// the command words; the rest of the line is kept verbatim as Arg.
func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}, &ErrUnknownCommand{Input: input}
	}

	for _, e := range byLength {
		words := strings.Fields(e.phrase)
		if len(words) > len(fields) {
			continue
		}
		match := true
		for i, w := range words {
			if !strings.EqualFold(fields[i], w) {
				match = false
				break
			}
		}
		if match {
			return Command{Kind: e.kind, Format: e.format, Arg: rest(input, len(words))}, nil
		}
	}

	return Command{}, &ErrUnknownCommand{Input: strings.TrimSpace(input), Suggestion: Suggest(input)}
}

// rest returns input after its first n whitespace-separated words.
func rest(input string, n int) string {
	s := strings.TrimSpace(input)
	for i := 0; i < n; i++ {
		s = strings.TrimLeft(s, " \t")
		idx := strings.IndexAny(s, " \t")
		if idx < 0 {
			return ""
		}
		s = s[idx:]
	}
	return strings.TrimSpace(s)
}

// Suggest returns the known command closest to input, or "" when nothing
// is similar enough.
func Suggest(input string) string {
	in := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if in == "" {
		return ""
	}

	best, bestScore := "", 0.0
	for _, e := range commands {
		d := levenshtein.ComputeDistance(in, e.phrase)
		longest := max(len([]rune(in)), len([]rune(e.phrase)))
		score := 1 - float64(d)/float64(longest)
		if score > bestScore {
			best, bestScore = e.phrase, score
		}
	}
	if bestScore < suggestCutoff {
		return ""
	}
	return best
}

// HelpLine is one entry of the command reference.
type HelpLine struct {
	Command     string
	Description string
}

// Help returns the documented commands in menu order.
func Help() []HelpLine {
	var out []HelpLine
	for _, e := range commands {
		if e.help != "" {
			out = append(out, HelpLine{Command: e.phrase, Description: e.help})
		}
	}
	return out
}

// Phrases returns every command phrase, for completion.
func Phrases() []string {
	out := make([]string, len(commands))
	for i, e := range commands {
		out[i] = e.phrase
	}
	return out
}

// Mutates reports whether a command changes the current table, which is
// when autoprint and auto-update apply.
func (k CommandKind) Mutates() bool {
	switch k {
	case CmdAddColumn, CmdRemoveColumn, CmdRenameColumn, CmdChangeType,
		CmdAddRow, CmdEditCell, CmdRemoveRow, CmdRename, CmdInferTypes:
		return true
	}
	return false
}
