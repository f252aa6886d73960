package domain

// File is one entry of a room's shared workspace.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DefaultFiles seeds every freshly created room.
func DefaultFiles() []File {
	return []File{
		{
			Name:    "main.js",
			Content: "// Welcome to the collaborative editor\nconsole.log('Hello, world!');\n",
		},
		{
			Name:    "README.md",
			Content: "# Shared workspace\n\nEveryone in this room sees edits to these files live.\n",
		},
	}
}
