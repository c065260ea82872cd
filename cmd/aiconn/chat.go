package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiconn/aiconn"
)

func newChatCmd() *cobra.Command {
	var (
		systemRole  string
		temperature float64
		maxTokens   int
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if systemRole != "" {
				client.SetSystemRole(systemRole)
			}
			if cmd.Flags().Changed("temperature") {
				client.SetTemperature(temperature)
			}
			if maxTokens > 0 {
				if err := client.SetMaxTokens(maxTokens); err != nil {
					return err
				}
			}

			reply, err := client.Chat(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(reply)
			logger.Debug("chat finished",
				"finish_reason", client.FinishReason(),
				"total_tokens", client.TotalTokens(),
				"http_status", client.ChatHTTPStatus(),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&systemRole, "system", "", "system prompt")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature (0-2)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "completion token limit")
	return cmd
}

func newStreamCmd() *cobra.Command {
	var systemRole string

	cmd := &cobra.Command{
		Use:   "stream <message>",
		Short: "Stream a reply to stdout as it arrives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if systemRole != "" {
				client.SetStreamSystemRole(systemRole)
			}

			err = client.StreamChat(cmd.Context(), strings.Join(args, " "), func(chunk aiconn.StreamChunk) bool {
				if chunk.Err != "" {
					return false
				}
				fmt.Print(chunk.Content)
				return true
			})
			if err != nil {
				return err
			}
			fmt.Println()
			logger.Debug("stream finished",
				"chunks", client.StreamChunkCount(),
				"bytes", client.StreamTotalBytes(),
				"elapsed", client.StreamElapsed(),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&systemRole, "system", "", "system prompt")
	return cmd
}
