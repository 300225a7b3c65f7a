package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintCommands_Tree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCommands(context.Background(), &buf, false))

	var views []core.CommandView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &views))

	byName := make(map[string]core.CommandView)
	for _, v := range views {
		byName[v.Name] = v
	}
	require.Contains(t, byName, "ping")
	require.Contains(t, byName, "math")
	assert.Equal(t, "group", byName["math"].Kind)
	assert.Len(t, byName["math"].Children, 4)

	roll := byName["roll"]
	require.Len(t, roll.Options, 2)
	assert.Equal(t, "choice", roll.Options[0].Type)
	assert.Equal(t, []string{"d4", "d6", "d8", "d12", "d20"}, roll.Options[0].Choices)
}

func TestPrintCommands_Payload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCommands(context.Background(), &buf, true))

	var payload []*discordgo.ApplicationCommand
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Len(t, payload, len(demoModules()[0].Commands)+1)

	for _, cmd := range payload {
		if cmd.Name == "math" {
			require.Len(t, cmd.Options, 4)
			assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, cmd.Options[0].Type)
		}
	}
}
