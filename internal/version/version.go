package version

// AppName is the bot's display name.
const AppName = "Durazno"

// Version is overridden at build time via -ldflags.
var Version = "dev"
