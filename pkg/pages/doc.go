// Package pages describes the application under test as capabilities
// (Login, Signup, Products, Cart, Checkout, Payment) rather than as a
// hierarchy of page classes.
//
// Each capability is implemented over a Driver, so scenarios never touch
// selectors and the whole package can be exercised without a browser.
// Clicks that submit something go through the overlay layer first; plain
// field input does not.
package pages
