package mysql

// Statement exposes statement to the external test package.
var Statement = statement
