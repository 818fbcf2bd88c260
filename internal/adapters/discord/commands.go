package discord

import "github.com/bwmarrin/discordgo"

func numberOption(name, description string) *discordgo.ApplicationCommandOption {
	min := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    true,
		MinValue:    &min,
		MaxValue:    99,
	}
}

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "lottery",
		Description: "The monthly FC lottery",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "guess",
				Description: "Guess a number between 1 and 99",
				Options:     []*discordgo.ApplicationCommandOption{numberOption("number", "Your guess")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "luckydip",
				Description: "Let the bot pick a number for you",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "pool",
					Description: "Which numbers to draw from (default: numbers nobody picked)",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "any number", Value: "any"},
						{Name: "numbers nobody picked", Value: "unused"},
						{Name: "numbers somebody picked", Value: "used"},
					},
				}},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "change",
				Description: "Swap one of your guesses for another number",
				Options: []*discordgo.ApplicationCommandOption{
					numberOption("from", "The guess to give up"),
					numberOption("to", "The new number"),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "whoguessed",
				Description: "See who picked a number",
				Options:     []*discordgo.ApplicationCommandOption{numberOption("number", "The number to look up")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "view",
				Description: "See your guesses and how many you have left",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "unused",
				Description: "List the numbers nobody has picked yet",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "run",
				Description: "Draw the lottery and start a new period (officers)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remind",
				Description: "Ping members with unused guesses (officers)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "award",
				Description: "Award extra guesses (officers)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "users",
						Description: "Mentions or IDs of the recipients",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "reason",
						Description: "What the extra guess is for",
						Required:    true,
					},
				},
			},
		},
	},
	{
		Name:        "verify",
		Description: "Link your Lodestone character",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "begin",
				Description: "Get a token to put in your Lodestone bio",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "complete",
				Description: "Check your bio and link the character",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "lodestone_id",
					Description: "The numeric ID from your character page URL",
					Required:    true,
				}},
			},
		},
	},
	{
		Name:        "sub",
		Description: "Opt in or out of event pings",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "subscribed",
			Description: "true to receive pings",
			Required:    true,
		}},
	},
	{
		Name:        "roles",
		Description: "Manage role access flags (officers)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "Show roles and their flags"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "flag",
				Description: "Set the access flags on a role",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "The guild role",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "admin",
						Description: "Grants officer access",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "member",
						Description: "Grants FC member access",
						Required:    true,
					},
				},
			},
		},
	},
	{
		Name:        "sync",
		Description: "Run a sync pass now (officers)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "directory", Description: "Mirror the guild roster"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "fights", Description: "Refresh the fight catalog from FFLogs"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "activity", Description: "Sync the next wave of member clears"},
		},
	},
}
