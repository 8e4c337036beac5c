package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/pyreview/pkg/exitcode"
)

const tinyNotebook = `{
 "nbformat": 4, "nbformat_minor": 5, "metadata": {},
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["# Title"]},
  {"cell_type": "code", "execution_count": 3, "metadata": {}, "outputs": [], "source": ["%matplotlib inline\n", "x = 1"]}
 ]
}`

func TestConvert_Notebook(t *testing.T) {
	isolateEnv(t)
	nb := writeFile(t, filepath.Join(t.TempDir(), "nb.ipynb"), tinyNotebook)

	out, _, err := execRoot(t, "", "convert", nb)
	require.NoError(t, err)
	assert.Contains(t, out, "# In[3]:")
	assert.Contains(t, out, "# # Title")
	assert.Contains(t, out, "# %matplotlib inline")
	assert.Contains(t, out, "x = 1")
}

func TestConvert_ToFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	nb := writeFile(t, filepath.Join(dir, "nb.ipynb"), tinyNotebook)
	dest := filepath.Join(dir, "nb.py")

	out, _, err := execRoot(t, "", "convert", "-o", dest, nb)
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "x = 1")
}

func TestConvert_Errors(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	bad := writeFile(t, filepath.Join(dir, "bad.ipynb"), "{not json")
	_, _, err := execRoot(t, "", "convert", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error converting notebook bad.ipynb")

	txt := writeFile(t, filepath.Join(dir, "a.txt"), "x")
	_, _, err = execRoot(t, "", "convert", txt)
	assert.Equal(t, exitcode.UnsupportedFormat, exitCodeFor(err))

	_, _, err = execRoot(t, "", "convert", filepath.Join(dir, "missing.ipynb"))
	assert.Equal(t, exitcode.FileSystemError, exitCodeFor(err))
}
