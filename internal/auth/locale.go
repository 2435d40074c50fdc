package auth

// localeNames is indexed by the locale id stored with the account.
var localeNames = [...]string{
	"enUS", "koKR", "frFR", "deDE", "zhCN", "zhTW", "esES", "esMX", "ruRU",
}

// localeID maps a client locale to its id. Unknown locales are enUS (0).
func localeID(name string) uint8 {
	for i, n := range localeNames {
		if n == name {
			return uint8(i)
		}
	}
	return 0
}
