package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
)

func TestRead_InferTypes(t *testing.T) {
	t.Parallel()

	in := "\uFEFFid,zip,score,active,name\n" +
		"1,0451,2.5,true,Ada\n" +
		"2,,NaN,FALSE,NA\n" +
		"-3,10,1e3,maybe,Inf\n"
	f, err := Read(strings.NewReader(in), Options{InferTypes: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "zip", "score", "active", "name"}, f.Columns())
	assert.Equal(t, 3, f.RowCount())

	id, _ := f.Column("id")
	assert.Equal(t, []neoframe.Value{neoframe.Int(1), neoframe.Int(2), neoframe.Int(-3)}, id)

	zip, _ := f.Column("zip")
	assert.Equal(t, []neoframe.Value{neoframe.String("0451"), neoframe.Null(), neoframe.Int(10)}, zip)

	score, _ := f.Column("score")
	assert.Equal(t, []neoframe.Value{neoframe.Float(2.5), neoframe.Null(), neoframe.Float(1000)}, score)

	active, _ := f.Column("active")
	assert.Equal(t, []neoframe.Value{neoframe.Bool(true), neoframe.Bool(false), neoframe.String("maybe")}, active)

	name, _ := f.Column("name")
	assert.Equal(t, []neoframe.Value{neoframe.String("Ada"), neoframe.Null(), neoframe.String("Inf")}, name)
}

func TestRead_StringsOnly(t *testing.T) {
	t.Parallel()

	f, err := Read(strings.NewReader("a;b\n1; x \n"), Options{Comma: ';', NullTokens: []string{}, TrimSpace: true})
	require.NoError(t, err)

	a, _ := f.Column("a")
	assert.Equal(t, []neoframe.Value{neoframe.String("1")}, a)
	b, _ := f.Column("b")
	assert.Equal(t, []neoframe.Value{neoframe.String("x")}, b)
}

func TestRead_EmptyNullTokensKeepEmptyCells(t *testing.T) {
	t.Parallel()

	f, err := Read(strings.NewReader("a,b\n,1\n"), Options{NullTokens: []string{}})
	require.NoError(t, err)
	assert.False(t, f.IsNull("a", 0))
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader(""), Options{})
	require.Error(t, err)

	_, err = Read(strings.NewReader("a,a\n1,2\n"), Options{})
	require.ErrorContains(t, err, "duplicate header")

	_, err = Read(strings.NewReader("a,b\n1,2,3\n"), Options{})
	require.ErrorContains(t, err, "line 2")
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("person,city\n1,10\n,20\n"), 0o600))

	f, err := ReadFile(path, Options{InferTypes: true})
	require.NoError(t, err)
	assert.True(t, f.IsNull("person", 1))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
