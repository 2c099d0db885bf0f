package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/acto-client/internal/api"
	"github.com/rickgao/acto-client/internal/format"
)

func printUser(a *app, u api.User) {
	a.printf("%-2s %s (@%s) [%s]\n", format.Initials(u.Name()), u.Name(), u.Username, format.AvatarColor(u.Name()))
	if u.Status != "" {
		a.printf("   status: %s\n", u.Status)
	}
	if u.Bio != "" {
		a.printf("   bio: %s\n", u.Bio)
	}
	if !u.LastSeen.IsZero() && !u.IsOnline {
		a.printf("   last seen: %s\n", a.formatter.FormatTime(u.LastSeen))
	}
}

func printMessage(a *app, m api.Message) {
	a.printf("[%s] %s: %s\n", a.formatter.FormatTime(m.CreatedAt), m.Sender.Name(), m.Content)
}

func chatsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.GetChats(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}

			for _, c := range resp.Chats {
				name := c.Name
				if name == "" {
					name = c.ID
				}
				line := c.ID + "  " + format.Initials(name) + "  " + name + " (" + string(c.Type) + ")"
				if c.UnreadCount > 0 {
					line += " +" + strconv.Itoa(c.UnreadCount)
				}
				if c.LastMessage != nil {
					line += "  " + a.formatter.FormatTime(c.LastMessage.CreatedAt)
				}
				a.printf("%s\n", line)
			}
			return nil
		},
	}
}

func messagesCmd(get func() *app) *cobra.Command {
	var page, limit int
	var all bool

	cmd := &cobra.Command{
		Use:   "messages <chat-id>",
		Short: "Show a chat's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()

			var msgs []api.Message
			if all {
				var err error
				msgs, err = a.client.GetAllMessages(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
			} else {
				resp, err := a.client.GetMessages(cmd.Context(), args[0], page, limit)
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(resp)
				}
				msgs = resp.Messages
			}

			if a.json {
				return a.printJSON(msgs)
			}
			for _, m := range msgs {
				printMessage(a, m)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", api.DefaultPage, "page number")
	cmd.Flags().IntVar(&limit, "limit", api.DefaultLimit, "messages per page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	return cmd
}

func sendCmd(get func() *app) *cobra.Command {
	var msgType string

	cmd := &cobra.Command{
		Use:   "send <chat-id> <text>...",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "), msgType)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			a.printf("sent %s\n", resp.Message.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&msgType, "type", api.DefaultMessageType, "message type")
	return cmd
}

func createChatCmd(get func() *app) *cobra.Command {
	var chatType string
	var params api.CreateChatParams
	var extra map[string]string

	cmd := &cobra.Command{
		Use:   "create-chat",
		Short: "Create a private, group or channel chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if len(extra) > 0 {
				params.Extra = make(map[string]any, len(extra))
				for k, v := range extra {
					params.Extra[k] = v
				}
			}

			resp, err := a.client.CreateChat(cmd.Context(), api.ChatType(chatType), params)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			a.printf("created %s %s\n", resp.Chat.Type, resp.Chat.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&chatType, "type", "t", string(api.ChatPrivate), "chat type: private, group or channel")
	cmd.Flags().StringVar(&params.Name, "name", "", "chat name")
	cmd.Flags().StringVar(&params.Description, "description", "", "chat description")
	cmd.Flags().StringVar(&params.Avatar, "avatar", "", "avatar URL")
	cmd.Flags().StringSliceVar(&params.Participants, "participant", nil, "participant user id (repeatable)")
	cmd.Flags().StringToStringVar(&extra, "extra", nil, "additional key=value fields")
	return cmd
}

func searchCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Search users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.SearchUsers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			for _, u := range resp.Users {
				a.printf("%s  ", u.ID)
				printUser(a, u)
			}
			return nil
		},
	}
}

func readCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <chat-id>",
		Short: "Mark a chat as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.client.MarkAsRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("marked %s as read\n", args[0])
			return nil
		},
	}
}
