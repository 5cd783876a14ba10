package rojo

// LegalNotice provides license notices for Rojo itself and any third-party
// dependencies linked into the binary. Run `rojo legal` to print it.
const LegalNotice = `Rojo

Licensed under the terms of the MIT License.

================================================================================
Rojo depends on the following third-party software:
================================================================================

github.com/spf13/cobra, github.com/spf13/pflag
https://github.com/spf13/cobra, https://github.com/spf13/pflag
Used under the terms of the Apache License 2.0.

github.com/fatih/color, github.com/mattn/go-isatty, github.com/mattn/go-colorable
https://github.com/fatih/color
Used under the terms of the MIT License.

github.com/pkg/errors
https://github.com/pkg/errors
Used under the terms of the BSD 2-Clause License.

github.com/BurntSushi/toml
https://github.com/BurntSushi/toml
Used under the terms of the MIT License.

github.com/bmatcuk/doublestar/v4
https://github.com/bmatcuk/doublestar
Used under the terms of the MIT License.

github.com/google/uuid
https://github.com/google/uuid
Used under the terms of the BSD 3-Clause License.

github.com/beevik/etree
https://github.com/beevik/etree
Used under the terms of the MIT License.

github.com/dustin/go-humanize
https://github.com/dustin/go-humanize
Used under the terms of the MIT License.

gopkg.in/yaml.v3
https://github.com/go-yaml/yaml
Used under the terms of the MIT and Apache License 2.0 (dual licensed).

Run "rojo legal" at any time to view this notice.
`
