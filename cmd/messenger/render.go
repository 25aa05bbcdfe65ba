package main

import (
	"chat-relay/domain"
	"chat-relay/presentation"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type renderer struct {
	out     io.Writer
	colours bool
}

func (r renderer) paint(style color.Style, text string) string {
	if !r.colours {
		return text
	}
	return style.Render(text)
}

// Change prints what a view update means for the user. It runs on the
// presentation loop.
func (r renderer) Change(c presentation.Change) {
	switch c.Kind {
	case presentation.ChatOpened:
		fmt.Fprintln(r.out, r.paint(color.New(color.BgBlack, color.FgGreen), fmt.Sprintf("  ====== chat %s ======", c.Chat)))
		if c.Wallpaper != "" {
			fmt.Fprintln(r.out, r.paint(color.New(color.FgGray), "wallpaper: "+c.Wallpaper))
		}
	case presentation.ChatClosed:
		fmt.Fprintln(r.out, r.paint(color.New(color.FgGray), fmt.Sprintf("left chat %s", c.Chat)))
	case presentation.MessageAppended:
		fmt.Fprintln(r.out, r.line(c.Line))
	case presentation.StatusChanged:
		status := fmt.Sprintf("● %s", c.State)
		if c.Err != nil {
			fmt.Fprintln(r.out, r.paint(color.New(color.FgRed), fmt.Sprintf("%s: %v", status, c.Err)))
			return
		}
		fmt.Fprintln(r.out, r.paint(color.New(color.FgGray), status))
	case presentation.WallpaperChanged:
		fmt.Fprintln(r.out, r.paint(color.New(color.FgGray), "wallpaper: "+c.Wallpaper))
	case presentation.Failure:
		fmt.Fprintln(r.out, r.paint(color.New(color.FgRed), fmt.Sprintf("✗ %v", c.Err)))
	}
}

func (r renderer) line(line presentation.Line) string {
	stamp := line.At.Local().Format("15:04:05")
	switch line.Envelope.Type {
	case domain.Image:
		return fmt.Sprintf("[%s] %s %s", stamp, r.paint(color.New(color.FgCyan), "[image]"), line.Envelope.Content)
	case domain.Video:
		return fmt.Sprintf("[%s] %s %s", stamp, r.paint(color.New(color.FgMagenta), "[video]"), line.Envelope.Content)
	case domain.File:
		return fmt.Sprintf("[%s] %s %s", stamp, r.paint(color.New(color.FgYellow), "[file]"), line.Envelope.Content)
	default:
		return fmt.Sprintf("[%s] %s", stamp, line.Envelope.Content)
	}
}

func (r renderer) Chats(chats []domain.ChatSummary) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"ID", "Title", "Kind"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	for _, chat := range chats {
		kind := "chat"
		if chat.IsChannel {
			kind = "channel"
		}
		table.Append([]string{chat.ID.String(), chat.Title, kind})
	}
	table.Render()
}
